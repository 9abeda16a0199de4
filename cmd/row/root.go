package row

import (
	"github.com/ValentinKolb/dRow/cmd/util"
	"github.com/ValentinKolb/dRow/lib/table"
	"github.com/ValentinKolb/dRow/rpc/client"
	"github.com/ValentinKolb/dRow/rpc/common"
	"github.com/spf13/cobra"
)

var (
	tableClient table.ITableClient

	// RowCommands represents the row command group
	RowCommands = &cobra.Command{
		Use:               "row",
		Short:             "Perform row operations on a dRow table",
		PersistentPreRunE: setupRowClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the row command
	util.SetupRPCClientFlags(RowCommands)

	// Add subcommands
	RowCommands.AddCommand(getCmd)
	RowCommands.AddCommand(setCmd)
	RowCommands.AddCommand(delCmd)
	RowCommands.AddCommand(batchCmd)
	RowCommands.AddCommand(condSetCmd)
	RowCommands.AddCommand(incrCmd)
	RowCommands.AddCommand(appendCmd)
	RowCommands.AddCommand(sampleCmd)
	RowCommands.AddCommand(scanCmd)
	RowCommands.AddCommand(perfTestCmd)
}

// setupRowClient initializes the RPC table client
func setupRowClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration and apply the log level
	config := util.GetClientConfig()
	common.InitLoggers(config)

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the table client
	tableClient, err = client.NewRPCTableClient(*config, t, s)
	return err
}
