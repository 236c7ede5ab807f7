package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ezenkico/deploy-commander/vectorstack/models"
	"github.com/google/uuid"
)

// Resource interactions
const agentResourcesPath = "/v1/resources"

func (a *AgentCommunication) CreateResource(
	ctx context.Context,
	resource models.CreateResource,
) (uuid.UUID, error) {

	client, _, err := a.Client()
	if err != nil {
		return uuid.Nil, err
	}

	body, err := json.Marshal(resource)
	if err != nil {
		return uuid.Nil, err
	}

	req, err := a.NewRequest(
		ctx,
		http.MethodPost,
		agentResourcesPath,
		bytes.NewReader(body),
	)
	if err != nil {
		return uuid.Nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return uuid.Nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return uuid.Nil, fmt.Errorf("create resource failed (%d): %s", resp.StatusCode, string(b))
	}

	var out struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return uuid.Nil, err
	}

	return out.ID, nil
}

// DeleteResourceByName removes a registered resource. A resource the agent
// does not know is not an error.
func (a *AgentCommunication) DeleteResourceByName(
	ctx context.Context,
	name string,
) error {

	client, _, err := a.Client()
	if err != nil {
		return err
	}

	req, err := a.NewRequest(
		ctx,
		http.MethodDelete,
		fmt.Sprintf("%s/name/%s", agentResourcesPath, url.PathEscape(name)),
		nil,
	)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete resource failed (%d): %s", resp.StatusCode, string(b))
	}
}
