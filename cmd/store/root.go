package store

import (
	"github.com/ValentinKolb/dPS/cmd/util"
	"github.com/ValentinKolb/dPS/lib/dps"
	"github.com/ValentinKolb/dPS/rpc/client"
	"github.com/spf13/cobra"
)

var (
	registry dps.IStoreRegistry

	// StoreCommands represents the store command group
	StoreCommands = &cobra.Command{
		Use:               "store",
		Short:             "Operate on named stores",
		Long:              "Operate on named stores. Stores are hash containers with reserved metadata, created and looked up by name.",
		PersistentPreRunE: setupStoreClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the store command
	util.SetupRPCClientFlags(StoreCommands)

	// Set default shard ID for store operations
	StoreCommands.PersistentFlags().Int("shard", 100, util.WrapString("ID of the shard to connect to"))

	// Add subcommands
	StoreCommands.AddCommand(createCmd)
	StoreCommands.AddCommand(putCmd)
	StoreCommands.AddCommand(getCmd)
	StoreCommands.AddCommand(rmCmd)
	StoreCommands.AddCommand(hasCmd)
	StoreCommands.AddCommand(sizeCmd)
	StoreCommands.AddCommand(clearCmd)
	StoreCommands.AddCommand(keysCmd)
	StoreCommands.AddCommand(iterateCmd)
}

// setupStoreClient initializes the store registry on a remote connection
func setupStoreClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()
	shardId := util.GetShardID()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the remote driver connection
	conn, err := client.NewRPCConn(
		shardId,
		*config,
		t,
		s,
	)
	if err != nil {
		return err
	}

	// The registry (and its lock manager) runs client side on top of
	// the remote connection
	registry = dps.NewRegistry(conn, nil)

	return nil
}
