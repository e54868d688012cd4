package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"mapred/engine/internal/master"
	"mapred/engine/pkg/mapreduce"
)

var (
	masterPort   int
	masterReader string
)

// masterCmd groups the master subcommands.
var masterCmd = &cobra.Command{
	Use:   "master",
	Short: "Manage the master",
	Long:  `The master holds the dataset, schedules tasks and aggregates results.`,
}

// masterStartCmd runs one complete job.
var masterStartCmd = &cobra.Command{
	Use:   "start [inputs...]",
	Short: "Run a mapreduce job as the master",
	Long: `Start the master, accept worker connections and run the job to
completion. The inputs are handed to the configured reader to build the
dataset; the final results are printed to stdout as JSON.`,
	Example: `  # word count over two files, with workers started separately
  mapred master start --reader line chapter1.txt chapter2.txt

  # custom port and secret
  mapred master start --port 4000 --secret hunter2 data.txt`,
	RunE: runMasterStart,
}

func init() {
	rootCmd.AddCommand(masterCmd)
	masterCmd.AddCommand(masterStartCmd)

	masterStartCmd.Flags().IntVar(&masterPort, "port", 0, "TCP port to listen on")
	masterStartCmd.Flags().StringVar(&masterReader, "reader", "", "reader used to build the dataset")
}

func runMasterStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Master.Port = masterPort
	}
	if cmd.Flags().Changed("reader") {
		cfg.Master.Reader = masterReader
	}

	reader, err := mapreduce.NewReader(cfg.Master.Reader)
	if err != nil {
		return err
	}
	source, err := reader.Read(args)
	if err != nil {
		return fmt.Errorf("build dataset: %w", err)
	}

	srv := master.NewServer(&master.Config{
		Port:   cfg.Master.Port,
		Secret: cfg.Secret,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	report, err := srv.Run(ctx, source)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	return printReport(report)
}

func printReport(report any) error {
	out, err := sonic.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
