package readapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/replane-dev/replane-sub002/internal/apierr"
)

var validate = validator.New()

// valueRequest is the structural validation target for
// GET /projects/{projectId}/configs/{name}/value.
type valueRequest struct {
	ProjectID     string `validate:"required"`
	Name          string `validate:"required"`
	EnvironmentID string `validate:"required"`
}

func parseValueRequest(r *http.Request, projectID, name string) (valueRequest, error) {
	req := valueRequest{
		ProjectID:     projectID,
		Name:          name,
		EnvironmentID: r.URL.Query().Get("environmentId"),
	}
	if err := validate.Struct(req); err != nil {
		return req, &apierr.ErrBadRequest{Reason: err.Error()}
	}
	return req, nil
}

// parseContext decodes the optional "context" query parameter, a
// JSON object of evaluation-context properties.
func parseContext(r *http.Request) (map[string]any, error) {
	raw := r.URL.Query().Get("context")
	if raw == "" {
		return map[string]any{}, nil
	}
	var ctx map[string]any
	if err := json.Unmarshal([]byte(raw), &ctx); err != nil {
		return nil, &apierr.ErrBadRequest{Reason: "context is not a valid JSON object: " + err.Error()}
	}
	return ctx, nil
}
