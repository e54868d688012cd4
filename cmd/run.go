package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mapred/engine/internal/master"
	"mapred/engine/pkg/mapreduce"
)

var (
	runReader  string
	runMapper  string
	runReducer string
)

// runCmd executes a job in-process, without workers or sockets.
var runCmd = &cobra.Command{
	Use:   "run [inputs...]",
	Short: "Run a job standalone, without workers",
	Long: `Execute a complete mapreduce job in this process. Useful for small
jobs and for trying out a mapper/reducer pair before distributing it.`,
	Example: `  mapred run --reader line --mapper wordcount --reducer sum chapter1.txt`,
	RunE:    runStandalone,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runReader, "reader", "", "reader used to build the dataset")
	runCmd.Flags().StringVar(&runMapper, "mapper", "", "mapper to run map tasks with")
	runCmd.Flags().StringVar(&runReducer, "reducer", "", "reducer to run reduce tasks with")
}

func runStandalone(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("reader") {
		cfg.Master.Reader = runReader
	}
	if cmd.Flags().Changed("mapper") {
		cfg.Worker.Mapper = runMapper
	}
	if cmd.Flags().Changed("reducer") {
		cfg.Worker.Reducer = runReducer
	}

	reader, err := mapreduce.NewReader(cfg.Master.Reader)
	if err != nil {
		return err
	}
	source, err := reader.Read(args)
	if err != nil {
		return fmt.Errorf("build dataset: %w", err)
	}

	report, err := master.RunLocal(source, cfg.Worker.Mapper, cfg.Worker.Reducer)
	if err != nil {
		return err
	}
	return printReport(report)
}
