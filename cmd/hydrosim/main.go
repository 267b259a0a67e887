// Команда hydrosim считает распределение воды в речных сетях: одиночные
// прогоны, валидация сценариев, ансамбли Монте-Карло и история прогонов.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version подставляется при сборке через ldflags
var version = "1.0.0"

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "hydrosim",
		Short: "Water allocation simulator for river networks",
		Long: `Hydrosim simulates water allocation in river networks. A scenario file
describes sources, reservoirs, demands and the links between them; every
simulated day the network is compiled into a minimum-cost flow problem,
solved, and the resulting allocation is applied to the network state.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the application config file")
}

func main() {
	// Ctrl+C обрывает прогон через контекст, движок фиксирует его как truncated
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
