package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/miradorstack/realitycheck/internal/api"
	"github.com/miradorstack/realitycheck/internal/app"
	"github.com/miradorstack/realitycheck/internal/config"
	"github.com/miradorstack/realitycheck/internal/history"
	"github.com/miradorstack/realitycheck/internal/models"
	"github.com/miradorstack/realitycheck/internal/utils"
)

type options struct {
	configPath string
	server     string
	startupID  string
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "realitycheck",
		Short:         "Track and review a startup's plan as it evolves",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&opts.server, "server", "", "gRPC address of a running server; local storage is used when empty")
	root.PersistentFlags().StringVarP(&opts.startupID, "startup", "s", "", "Startup identifier")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Print raw JSON")
	_ = root.MarkPersistentFlagRequired("startup")

	root.AddCommand(newAnalyzeCmd(opts), newHistoryCmd(opts))
	return root
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Submit an update and print the review",
		Long: `Submit a founder update. The text comes from the argument, from --file,
or from stdin when neither is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}
			var resp models.AnalysisResponse
			if opts.server != "" {
				resp, err = remoteAnalyze(cmd.Context(), opts.server, opts.startupID, text)
			} else {
				err = withLocalApp(cmd.Context(), opts.configPath, func(a *app.App) error {
					var analyzeErr error
					resp, analyzeErr = a.Analyzer.Analyze(cmd.Context(), opts.startupID, text)
					return analyzeErr
				})
			}
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			printAnalysis(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the update from a file")
	return cmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show every stored version and the drift between them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				h   models.History
				err error
			)
			if opts.server != "" {
				h, err = remoteHistory(cmd.Context(), opts.server, opts.startupID)
			} else {
				err = withLocalApp(cmd.Context(), opts.configPath, func(a *app.App) error {
					var loadErr error
					h, loadErr = a.History.Load(cmd.Context(), opts.startupID)
					return loadErr
				})
			}
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), h)
			}
			printHistory(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

func withLocalApp(ctx context.Context, configPath string, fn func(*app.App) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// Keep stdout clean for the report; only warnings reach stderr unless
	// debug logging was asked for.
	level := "warn"
	if strings.EqualFold(cfg.Logging.Level, "debug") {
		level = "debug"
	}
	logger := utils.NewLoggerTo(os.Stderr, level, cfg.Logging.JSON)
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func dial(address string) (*grpc.ClientConn, error) {
	return grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func remoteAnalyze(ctx context.Context, address, startupID, text string) (models.AnalysisResponse, error) {
	conn, err := dial(address)
	if err != nil {
		return models.AnalysisResponse{}, err
	}
	defer conn.Close()
	req, err := api.ToProtoAnalyzeRequest(models.AnalyzeRequest{StartupID: startupID, InputText: text})
	if err != nil {
		return models.AnalysisResponse{}, err
	}
	out, err := api.NewClient(conn).Analyze(ctx, req)
	if err != nil {
		return models.AnalysisResponse{}, err
	}
	return api.FromProtoAnalysisResponse(out)
}

func remoteHistory(ctx context.Context, address, startupID string) (models.History, error) {
	conn, err := dial(address)
	if err != nil {
		return models.History{}, err
	}
	defer conn.Close()
	req, err := api.ToProtoHistoryRequest(models.HistoryRequest{StartupID: startupID})
	if err != nil {
		return models.History{}, err
	}
	out, err := api.NewClient(conn).GetHistory(ctx, req)
	if err != nil {
		return models.History{}, err
	}
	return api.FromProtoHistory(out)
}

func readInput(stdin io.Reader, file string, args []string) (string, error) {
	switch {
	case len(args) == 1 && file != "":
		return "", errors.New("pass the update as an argument or with --file, not both")
	case len(args) == 1:
		return args[0], nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read update: %w", err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printAnalysis(w io.Writer, resp models.AnalysisResponse) {
	fmt.Fprintf(w, "%s v%d: %s\n", resp.Snapshot.StartupID, resp.Snapshot.Version, resp.Status)

	if len(resp.Drift) > 0 {
		fmt.Fprintln(w, "\nDrift")
		for _, item := range resp.Drift {
			fmt.Fprintf(w, "  %-28s %-17s %s\n", item.Field, item.Classification, item.Comment)
		}
	}

	fmt.Fprintln(w, "\nDimensions")
	for _, review := range resp.DimensionReviews {
		fmt.Fprintf(w, "  %-22s %-7s %s\n", review.Dimension, review.Severity, review.Issue)
	}

	if len(resp.Experiments) > 0 {
		fmt.Fprintln(w, "\nExperiments")
		for i, exp := range resp.Experiments {
			fmt.Fprintf(w, "  %d. %s (%s, %s)\n", i+1, exp.Title, strings.ReplaceAll(exp.ChannelType, "_", " "), exp.TimeCost)
			for _, step := range exp.Steps {
				fmt.Fprintf(w, "     - %s\n", step)
			}
			fmt.Fprintf(w, "     success: %s\n", exp.SuccessCriteria)
		}
	}
}

func printHistory(w io.Writer, h models.History) {
	if len(h.Snapshots) == 0 {
		fmt.Fprintf(w, "%s: no versions stored\n", h.StartupID)
		return
	}
	fmt.Fprintf(w, "%s: %d versions\n", h.StartupID, h.LatestVersion)
	for _, vd := range h.Drift {
		fmt.Fprintf(w, "\nv%d\n", vd.Version)
		if len(vd.Items) == 0 {
			fmt.Fprintln(w, "  (no changes)")
		}
		for _, item := range vd.Items {
			fmt.Fprintf(w, "  %-28s %s\n", item.Field, item.Classification)
		}
	}
	if hot := history.Hotspots(h, 3); len(hot) > 0 {
		fmt.Fprintln(w, "\nMost pivoted")
		for _, field := range hot {
			fmt.Fprintf(w, "  %-28s %d\n", field, h.Pivots[field])
		}
	}
}
