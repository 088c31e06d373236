package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/annotate/internal/client"
	"github.com/MrSnakeDoc/annotate/internal/domain"
	"github.com/MrSnakeDoc/annotate/internal/logger"
	"github.com/MrSnakeDoc/annotate/internal/view"
)

var (
	renderServer      string
	renderAnnotations string
	renderHighlight   string
	renderTimeout     time.Duration
	renderReadyDelay  time.Duration
	renderVerbose     bool
)

var errReadOnly = errors.New("annotations file is read-only")

// fileStorage serves annotations from a JSON file.
type fileStorage struct {
	list []domain.Annotation
}

func (s *fileStorage) ListAnnotations(context.Context, string) ([]domain.Annotation, error) {
	return s.list, nil
}

func (s *fileStorage) CreateAnnotation(context.Context, domain.NewAnnotation) (*domain.Annotation, error) {
	return nil, errReadOnly
}

func (s *fileStorage) CreateShare(context.Context, domain.NewShare) (*domain.ShareCreated, error) {
	return nil, errReadOnly
}

func (s *fileStorage) GetShare(context.Context, string) (*domain.ShareSnippet, error) {
	return nil, errReadOnly
}

var renderCmd = &cobra.Command{
	Use:   "render <article.md>",
	Short: "Render an article with its highlights and marker cards",
	Long: `Mounts the annotation engine on a Markdown article and prints the resulting
HTML. Annotations come from a running service (--server) or a JSON file
(--annotations).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, root, err := loadArticle(args[0])
		if err != nil {
			return err
		}

		var (
			storage view.Storage
			shares  view.ShareGetter
		)
		switch {
		case renderServer != "":
			c := client.New(renderServer, renderTimeout)
			storage, shares = c, c
		case renderAnnotations != "":
			fs, err := readAnnotations(renderAnnotations)
			if err != nil {
				return err
			}
			storage, shares = fs, fs
		default:
			return errors.New("one of --server or --annotations is required")
		}

		log := logger.NewNop()
		if renderVerbose {
			log = logger.New("debug", true)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), renderTimeout)
		defer cancel()

		v, err := view.Mount(ctx, root, a.Slug, view.Deps{
			Storage:    storage,
			Log:        log,
			Title:      a.Title,
			ReadyDelay: renderReadyDelay,
		})
		if err != nil {
			return err
		}
		defer v.Close()

		if renderHighlight != "" {
			if _, err := v.Relocate(ctx, shares, view.RelocateRequest{ShareID: renderHighlight}); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
		}

		out, err := v.HTML()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	},
}

func readAnnotations(path string) (*fileStorage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotations: %w", err)
	}
	var list []domain.Annotation
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse annotations %s: %w", path, err)
	}
	return &fileStorage{list: list}, nil
}

func init() {
	renderCmd.Flags().StringVar(&renderServer, "server", "", "base URL of a running annotation service")
	renderCmd.Flags().StringVar(&renderAnnotations, "annotations", "", "JSON file with a list of annotations")
	renderCmd.Flags().StringVar(&renderHighlight, "highlight", "", "share id to locate and mark")
	renderCmd.Flags().DurationVar(&renderTimeout, "timeout", 10*time.Second, "request timeout")
	renderCmd.Flags().DurationVar(&renderReadyDelay, "ready-delay", view.DefaultReadyDelay, "wait before the first highlight pass")
	renderCmd.Flags().BoolVarP(&renderVerbose, "verbose", "v", false, "log engine passes to stderr")
	rootCmd.AddCommand(renderCmd)
}
