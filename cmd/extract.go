package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/place-resolver/internal/extract"
)

var extractConcurrency int

// extractResult pairs a scanned file with its coordinate candidates.
type extractResult struct {
	File       string              `json:"file"`
	Candidates []extract.Candidate `json:"candidates"`
}

var extractCmd = &cobra.Command{
	Use:   "extract <dir-or-file>...",
	Short: "Re-run coordinate extraction over saved markup files",
	Long:  "Scans saved directions-page HTML and prints every coordinate candidate each strategy finds, for debugging extraction misses without re-fetching.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("extract"); err != nil {
			return err
		}

		files, err := collectMarkupFiles(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return eris.New("cmd: no .html files found")
		}

		extractor := extract.New(extract.WithRegion(cfg.Extract.Region()))

		var (
			mu      sync.Mutex
			results []extractResult
		)
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(extractConcurrency)
		for _, file := range files {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				body, err := os.ReadFile(file)
				if err != nil {
					return eris.Wrapf(err, "cmd: read %s", file)
				}
				candidates := extractor.ExtractAll(string(body))
				zap.L().Debug("scanned markup file",
					zap.String("file", file),
					zap.Int("candidates", len(candidates)),
				)
				mu.Lock()
				results = append(results, extractResult{File: file, Candidates: candidates})
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

// collectMarkupFiles expands arguments into a flat list of .html files.
func collectMarkupFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "cmd: stat %s", arg)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.html"))
		if err != nil {
			return nil, eris.Wrapf(err, "cmd: glob %s", arg)
		}
		files = append(files, matches...)
	}
	return files, nil
}

func init() {
	extractCmd.Flags().IntVar(&extractConcurrency, "concurrency", 8, "parallel file scans")
	rootCmd.AddCommand(extractCmd)
}
