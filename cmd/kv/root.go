package kv

import (
	"github.com/ValentinKolb/dPS/cmd/util"
	"github.com/ValentinKolb/dPS/lib/driver"
	"github.com/ValentinKolb/dPS/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcConn driver.IConn

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value operations on a shard",
		PersistentPreRunE: setupKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	// Set default shard ID for key value operations (different from Lock default)
	KeyValueCommands.PersistentFlags().Int("shard", 100, util.WrapString("ID of the shard to connect to"))

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(setXCmd)
	KeyValueCommands.AddCommand(setIfAbsentCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(existsCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(incrCmd)
	KeyValueCommands.AddCommand(expireCmd)
	KeyValueCommands.AddCommand(hGetCmd)
	KeyValueCommands.AddCommand(hExistsCmd)
	KeyValueCommands.AddCommand(hSetCmd)
	KeyValueCommands.AddCommand(hDelCmd)
	KeyValueCommands.AddCommand(hLenCmd)
	KeyValueCommands.AddCommand(hKeysCmd)
	KeyValueCommands.AddCommand(pingCmd)
	KeyValueCommands.AddCommand(infoCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the remote driver connection
func setupKVClient(cmd *cobra.Command, _ []string) error {
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
	rpcConn, err = client.NewRPCConn(
		shardId,
		*config,
		t,
		s,
	)

	return err
}
