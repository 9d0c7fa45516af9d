package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dxblostfound/lostfound/pkg/backend"
	"github.com/dxblostfound/lostfound/pkg/locator"
	"github.com/dxblostfound/lostfound/pkg/matching"
)

// LOSTFOUND_BACKEND_URL maps to backend.url.
var envKeyReplacer = strings.NewReplacer(".", "_")

// Call sites with their own floor.
const (
	siteDashboard = "dashboard"
	siteLost      = "lost"
	siteFound     = "found"
)

func backendClient() (*backend.Client, error) {
	return backend.NewClient(backend.Config{
		BaseURL:  viper.GetString("backend.url"),
		Timeout:  time.Duration(viper.GetInt("backend.timeout")) * time.Second,
		RetryMax: viper.GetInt("backend.retries"),
		Proxy:    viper.GetString("backend.proxy"),
	})
}

// classifierFor builds the classifier of one call site. Image references
// resolve against the backend the client talks to.
func classifierFor(site string, client *backend.Client) (matching.Classifier, error) {
	loc, err := locator.New(client.BaseURL())
	if err != nil {
		return matching.Classifier{}, fmt.Errorf("backend.url: %w", err)
	}
	policy, err := matching.NewPolicy(viper.GetFloat64("matching.floor."+site), viper.GetFloat64("matching.exact"))
	if err != nil {
		return matching.Classifier{}, fmt.Errorf("matching.floor.%s: %w", site, err)
	}
	return matching.NewClassifier(matching.NewAdapter(loc), policy), nil
}
