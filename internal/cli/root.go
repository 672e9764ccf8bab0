package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mailpouch/mailpouch/internal/app"
	"github.com/mailpouch/mailpouch/internal/config"
	"github.com/mailpouch/mailpouch/internal/remote/gmail"
	"github.com/mailpouch/mailpouch/internal/store"
	"github.com/mailpouch/mailpouch/internal/store/sqlite"
)

var (
	// version is set via ldflags at build time.
	version = "dev"
	cfgFile string

	// jsonFlag enables JSON output for all commands.
	jsonFlag bool

	// userFlag selects the mailbox user for this invocation.
	userFlag string
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "mailpouch",
		Short:   "Local mail cache and consistency engine",
		Long:    "Caches Gmail conversations locally and keeps list views, counters and labels consistent while mutations sync in the background.",
		Version: version,
	}
	root.SetVersionTemplate(fmt.Sprintf("mailpouch %s\n", version))
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&userFlag, "user", "", "user ID (defaults to config default)")
	root.AddCommand(newAuthCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newLabelsCmd())
	root.AddCommand(newCountersCmd())
	root.AddCommand(newOutboxCmd())
	root.AddCommand(newMarkReadCmd())
	root.AddCommand(newMarkUnreadCmd())
	root.AddCommand(newStarCmd())
	root.AddCommand(newLabelCmd())
	root.AddCommand(newMoveCmd())
	root.AddCommand(newDeleteCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// session bundles the store, remote client and engine components the
// commands operate on.
type session struct {
	db     *sqlite.DB
	client *gmail.Client
	userID string
	cfg    *config.Config
}

func (s *session) Close() error { return s.db.Close() }

// openSession wires up the database, config and Gmail client for the
// resolved user.
func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	userID := userFlag
	if userID == "" {
		userID = cfg.User.Default
	}
	if userID == "" {
		return nil, fmt.Errorf("no user configured; pass --user or set [user] default in %s",
			filepath.Join(config.ConfigDir(), "config.toml"))
	}

	if err := resolveGmailCredentials(cfg); err != nil {
		return nil, err
	}

	db, err := openDB()
	if err != nil {
		return nil, err
	}

	return &session{
		db:     db,
		client: gmail.New(userID, store.NewKeyringTokenStore()),
		userID: userID,
		cfg:    cfg,
	}, nil
}

func (s *session) mutator() *app.Mutator {
	return app.NewMutator(s.db, s.db)
}

// openDB creates the data directory and opens the SQLite database.
func openDB() (*sqlite.DB, error) {
	dataDir := config.DataDir()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "mailpouch.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// loadConfig loads the application configuration from the config file.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.toml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// resolveGmailCredentials sets Gmail OAuth credentials using the first
// available source: config file, then environment variables.
func resolveGmailCredentials(cfg *config.Config) error {
	if cfg.Gmail.ClientID != "" && cfg.Gmail.ClientSecret != "" {
		gmail.SetCredentials(cfg.Gmail.ClientID, cfg.Gmail.ClientSecret)
		return nil
	}

	clientID := os.Getenv("GMAIL_CLIENT_ID")
	clientSecret := os.Getenv("GMAIL_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		gmail.SetCredentials(clientID, clientSecret)
		return nil
	}

	return gmail.EnsureCredentials()
}
