package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"mapred/engine/internal/worker"
	"mapred/engine/pkg/mapreduce"
)

var (
	workerAddress string
	workerPort    int
	workerMapper  string
	workerReducer string
	workerCommand string
)

// workerCmd groups the worker subcommands.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Manage workers",
	Long:  `Workers connect to the master and execute the tasks it assigns.`,
}

// workerStartCmd connects one worker to the master.
var workerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a worker",
	Long: `Start a worker, connect to the master and serve tasks until
disconnected. The mapper and reducer are resolved by name from the built-in
registry.`,
	Example: `  # word count worker against a local master
  mapred worker start --mapper wordcount --reducer sum

  # remote master
  mapred worker start --address 10.0.0.5 --port 4000 --secret hunter2

  # run each task value through an external tool
  mapred worker start --mapper command --command "python3 -"`,
	RunE: runWorkerStart,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.AddCommand(workerStartCmd)

	workerStartCmd.Flags().StringVar(&workerAddress, "address", "", "master address")
	workerStartCmd.Flags().IntVar(&workerPort, "port", 0, "master port")
	workerStartCmd.Flags().StringVar(&workerMapper, "mapper", "", "mapper to run map tasks with")
	workerStartCmd.Flags().StringVar(&workerReducer, "reducer", "", "reducer to run reduce tasks with")
	workerStartCmd.Flags().StringVar(&workerCommand, "command", "", "binary and arguments for the command mapper")
}

func runWorkerStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("address") {
		cfg.Worker.Address = workerAddress
	}
	if cmd.Flags().Changed("port") {
		cfg.Worker.Port = workerPort
	}
	if cmd.Flags().Changed("mapper") {
		cfg.Worker.Mapper = workerMapper
	}
	if cmd.Flags().Changed("reducer") {
		cfg.Worker.Reducer = workerReducer
	}
	if workerCommand != "" {
		argv := strings.Fields(workerCommand)
		mapreduce.SetCommand(argv[0], argv[1:]...)
	}

	wk := worker.New(&worker.Config{
		Address: cfg.Worker.Address,
		Port:    cfg.Worker.Port,
		Secret:  cfg.Secret,
		Mapper:  cfg.Worker.Mapper,
		Reducer: cfg.Worker.Reducer,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return wk.Run(ctx)
}
