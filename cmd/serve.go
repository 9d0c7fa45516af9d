package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dxblostfound/lostfound/internal/devserver"
	"github.com/dxblostfound/lostfound/internal/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local fixture backend for development.",
	Long: `Run a local fixture backend implementing the submit and history endpoints.
Items are stored in SQLite and candidates get deterministic fixture scores;
no image comparison takes place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := devserver.OpenStore(viper.GetString("serve.dbpath"))
		if err != nil {
			return err
		}
		defer store.Close()

		srv := devserver.New(devserver.Config{
			Store:    store,
			Username: viper.GetString("serve.username"),
			Password: viper.GetString("serve.password"),
			TopK:     viper.GetInt("serve.topk"),
			Scores:   scoreOverrides(),
			Log:      utils.Log,
		})
		return srv.Start(viper.GetString("serve.listen"))
	},
}

// scoreOverrides reads serve.scores, a map of "lostID:foundID" to score.
func scoreOverrides() map[string]float64 {
	raw := viper.GetStringMap("serve.scores")
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		switch n := v.(type) {
		case float64:
			out[k] = n
		case int:
			out[k] = float64(n)
		default:
			utils.Log.Warnf("Ignoring score override %s: not a number", k)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "HTTP listen address (default serve.listen)")
	serveCmd.Flags().String("dbpath", "", "SQLite database path (default serve.dbpath)")
	viper.BindPFlag("serve.listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("serve.dbpath", serveCmd.Flags().Lookup("dbpath"))
}
