package descriptor

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ezenkico/deploy-commander/vectorstack/models"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default_stack.yaml
var defaultStack []byte

// DefaultDescriptor returns the built-in descriptor, uninterpolated.
func DefaultDescriptor() []byte {
	out := make([]byte, len(defaultStack))
	copy(out, defaultStack)
	return out
}

// Loader reads descriptors and resolves variables from the process
// environment and an optional .env file. Process variables win.
type Loader struct {
	EnvFile string
	Getenv  LookupFunc
}

func NewLoader(envFile string) *Loader {
	return &Loader{
		EnvFile: envFile,
		Getenv:  os.LookupEnv,
	}
}

// Load reads path, or the built-in descriptor when path is empty. Without
// an explicit env file, a .env beside the descriptor (or in the working
// directory for the built-in one) is used when present.
func (l *Loader) Load(path string) (*models.Stack, error) {
	data := defaultStack
	envFile := l.EnvFile

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read descriptor %q: %w", path, err)
		}
		data = b
		if envFile == "" {
			envFile = filepath.Join(filepath.Dir(path), ".env")
		}
	} else if envFile == "" {
		envFile = ".env"
	}

	dotenv, err := readEnvFile(envFile, l.EnvFile != "")
	if err != nil {
		return nil, err
	}

	lookup := func(name string) (string, bool) {
		if l.Getenv != nil {
			if v, ok := l.Getenv(name); ok {
				return v, true
			}
		}
		v, ok := dotenv[name]
		return v, ok
	}

	stack, err := Parse(data, lookup)
	if err != nil {
		if path == "" {
			return nil, fmt.Errorf("built-in descriptor: %w", err)
		}
		return nil, fmt.Errorf("descriptor %q: %w", path, err)
	}
	return stack, nil
}

func readEnvFile(path string, required bool) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err == nil {
		return vars, nil
	}
	if !required && errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	return nil, fmt.Errorf("read env file %q: %w", path, err)
}

// Parse interpolates, decodes and validates a descriptor. Variables are
// substituted in scalar values only, after the YAML structure is fixed.
func Parse(data []byte, lookup LookupFunc) (*models.Stack, error) {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if root.Kind == 0 {
		return nil, errors.New("parse yaml: descriptor is empty")
	}
	if err := interpolateNode(&root, lookup); err != nil {
		return nil, err
	}
	resolved, err := yaml.Marshal(&root)
	if err != nil {
		return nil, fmt.Errorf("interpolate: %w", err)
	}

	var file composeFile
	dec := yaml.NewDecoder(bytes.NewReader(resolved))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	stack, err := file.toStack()
	if err != nil {
		return nil, err
	}

	if err := Validate(stack); err != nil {
		return nil, err
	}

	return stack, nil
}

// Render encodes a resolved stack as a descriptor that Parse accepts.
func Render(stack *models.Stack) ([]byte, error) {
	var root yaml.Node
	if err := root.Encode(fromStack(stack)); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	escapeNode(&root)
	return yaml.Marshal(&root)
}
