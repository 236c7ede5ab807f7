package models

const DefaultNetwork = "default"

// Stack is a fully resolved deployment descriptor.
type Stack struct {
	Name     string             `json:"name" yaml:"name"`
	Services map[string]Service `json:"services" yaml:"services"`
	Volumes  []string           `json:"volumes,omitempty" yaml:"volumes,omitempty"`
}

// HasVolume reports whether name is declared at the top level.
func (s *Stack) HasVolume(name string) bool {
	for _, v := range s.Volumes {
		if v == name {
			return true
		}
	}
	return false
}
