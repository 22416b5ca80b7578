package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const tokenEndpoint = "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"

// Authenticate exchanges a CDSE username/password for a bearer access token
// at the fixed CDSE OAuth endpoint.
func Authenticate(ctx context.Context, username, password string) (string, error) {
	var body struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
		ErrorDesc   string `json:"error_description"`
	}

	resp, err := resty.New().SetTimeout(15*time.Second).R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":  "cdse-public",
			"username":   username,
			"password":   password,
			"grant_type": "password",
		}).
		SetResult(&body).
		Post(tokenEndpoint)
	if err != nil {
		return "", fmt.Errorf("catalog: token request failed: %w", err)
	}
	if resp.IsError() || body.AccessToken == "" {
		if body.ErrorDesc != "" {
			return "", fmt.Errorf("catalog: authentication failed: %s", body.ErrorDesc)
		}
		return "", fmt.Errorf("catalog: authentication failed: status %d", resp.StatusCode())
	}
	return body.AccessToken, nil
}
