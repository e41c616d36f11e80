package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/signalboard/sigdebate/internal/models"
	"github.com/spf13/cobra"
)

var (
	createType   string
	createURL    string
	createBody   string
	createFile   string
	createSource string
	createSymbol string
	createLocale string
	createOwner  string
	createRun    bool
	createWatch  bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new debate session",
	Long: `Create a new debate session over a piece of financial content.

Content can be given inline with --body, read from a file with --file,
or referenced by --url for article/video content.

Examples:
  sigdebate create --type direct_text --body "NVDA beat earnings estimates by 12%" --symbol NVDA
  sigdebate create --type article --url https://example.com/nvda-earnings --symbol NVDA
  sigdebate create --type report --file ./q2-report.txt --symbol AAPL --run --watch`,
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVarP(&createType, "type", "t", string(models.ContentDirectText), "content type (article, video, direct_text, report, commentary)")
	createCmd.Flags().StringVarP(&createURL, "url", "u", "", "content URL")
	createCmd.Flags().StringVarP(&createBody, "body", "b", "", "inline content body")
	createCmd.Flags().StringVarP(&createFile, "file", "f", "", "read content body from file")
	createCmd.Flags().StringVar(&createSource, "source", "", "content source (publisher, feed)")
	createCmd.Flags().StringVar(&createSymbol, "symbol", "", "primary ticker symbol")
	createCmd.Flags().StringVar(&createLocale, "locale", "", "content locale")
	createCmd.Flags().StringVar(&createOwner, "owner", "", "owner identifier")
	createCmd.Flags().BoolVar(&createRun, "run", false, "run the session to completion after creating it")
	createCmd.Flags().BoolVarP(&createWatch, "watch", "w", false, "with --run, show live progress")
}

func runCreate(cmd *cobra.Command, args []string) error {
	body := createBody
	if createFile != "" {
		data, err := os.ReadFile(createFile)
		if err != nil {
			return fmt.Errorf("read content file: %w", err)
		}
		body = string(data)
	}

	content := models.ContentDescriptor{
		Type:     models.ContentType(createType),
		Source:   createSource,
		URL:      createURL,
		Body:     body,
		Metadata: map[string]string{},
	}
	if createSymbol != "" {
		content.Metadata[models.MetaKeySymbol] = strings.ToUpper(createSymbol)
	}
	if createLocale != "" {
		content.Metadata[models.MetaKeyLocale] = createLocale
	}

	var owner *string
	if createOwner != "" {
		owner = &createOwner
	}

	ctx := cmd.Context()
	session, err := apiClient.CreateSession(ctx, content, owner)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	fmt.Printf("Created session %s\n", session.ID)

	if !createRun {
		return nil
	}
	return runSessionToCompletion(ctx, session.ID, createWatch)
}
