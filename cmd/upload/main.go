// Command upload pushes a local file through the upload pipeline for one
// owner, or lists that owner's documents.
//
//	upload -owner <sub> [-type <mime>] <file>
//	upload -owner <sub> -list
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/docsummarizer/go-services/internal/app"
	"github.com/docsummarizer/go-services/internal/auth"
	"github.com/docsummarizer/go-services/internal/config"
	"github.com/docsummarizer/go-services/internal/document"
	docservice "github.com/docsummarizer/go-services/internal/document/service"
	"github.com/docsummarizer/go-services/pkg/logger"
)

func main() {
	owner := flag.String("owner", "", "owner id (identity subject)")
	mimeType := flag.String("type", "", "content type; guessed from the extension when empty")
	list := flag.Bool("list", false, "list the owner's documents instead of uploading")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))
	if *owner == "" || (!*list && flag.NArg() != 1) {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to initialize collaborators: %v", err)
	}
	defer a.Close(context.Background())

	store := docservice.NewDocumentStore(auth.Identity{UserID: *owner}, a.Pipeline, a.Documents, a.Blobs)
	if *list {
		docs, err := store.Load(ctx)
		if err != nil {
			logger.Fatalf("list documents: %v", err)
		}
		printJSON(docs)
		return
	}

	if err := upload(ctx, store, flag.Arg(0), *mimeType); err != nil {
		a.Close(context.Background())
		logger.Fatalf("upload: %v", err)
	}
}

func upload(ctx context.Context, store *docservice.DocumentStore, path, mimeType string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}
	if mimeType == "" {
		mimeType, _, _ = mime.ParseMediaType(mime.TypeByExtension(filepath.Ext(path)))
	}

	d, err := store.Add(ctx, document.File{
		Name:      filepath.Base(path),
		MimeType:  mimeType,
		SizeBytes: st.Size(),
		Content:   f,
	}, func(pct float64) {
		fmt.Fprintf(os.Stderr, "\rprogress: %3.0f%%", pct)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	printJSON(d)
	return nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
