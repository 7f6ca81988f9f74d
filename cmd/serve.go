package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slmtnm/s4admin/internal/devserver"
	"github.com/slmtnm/s4admin/internal/logging"
)

var (
	serveListen string
	serveMemory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a development media API",
	Long: `Run a development implementation of the admin media endpoints.

Objects are stored in the bucket from the [storage] section, or in memory
with --memory or when no storage is configured. Uploads are recorded in the
SQLite database from the [server] section; when that write fails the upload
answers 500 "database error", like the production API. Setting jwt_secret
requires HS256 bearer tokens (see 'token').`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "keep objects in memory instead of S3")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := getContext(cmd)
	defer cancel()

	cfg := appConfig
	listen := cfg.Server.Listen
	if serveListen != "" {
		listen = serveListen
	}

	var store devserver.Store
	if serveMemory || !cfg.Storage.Configured() {
		publicURL := cfg.Storage.PublicURL
		if publicURL == "" {
			publicURL = "http://localhost" + listen + "/media"
		}
		store = devserver.NewMemoryStore(publicURL)
		logging.Info("using in-memory object store")
	} else {
		s3Store, err := devserver.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("error creating S3 client: %w", err)
		}
		if err := s3Store.Check(ctx); err != nil {
			return err
		}
		store = s3Store
		logging.Info("using S3 object store", logging.String("bucket", cfg.Storage.Bucket))
	}

	catalog, err := devserver.OpenCatalog(cfg.Server.Database)
	if err != nil {
		return err
	}
	defer catalog.Close()

	srv := devserver.New(store, catalog, devserver.Options{JWTSecret: []byte(cfg.Server.JWTSecret)})
	fmt.Fprintf(cmd.OutOrStdout(), "Media API listening on %s\n", listen)
	return srv.ListenAndServe(ctx, listen)
}
