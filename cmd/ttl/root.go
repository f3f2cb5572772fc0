package ttl

import (
	"fmt"

	"github.com/ValentinKolb/dPS/cmd/util"
	"github.com/ValentinKolb/dPS/lib/dps"
	"github.com/ValentinKolb/dPS/rpc/client"
	"github.com/spf13/cobra"
)

var (
	registry dps.IStoreRegistry

	ttlSeconds uint64
	rawKey     bool
	rawValue   bool

	// TTLCommands represents the ttl command group
	TTLCommands = &cobra.Command{
		Use:               "ttl",
		Short:             "Operate on the global TTL keyspace",
		Long:              "Operate on the global TTL keyspace. Entries live outside any store and can expire on their own.",
		PersistentPreRunE: setupTTLClient,
	}

	putCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Stores an entry, optionally with a time to live",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := registry.PutTTL([]byte(args[0]), []byte(args[1]), ttlSeconds, !rawKey, !rawValue); err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, loaded, err := registry.GetTTL([]byte(args[0]), !rawKey, !rawValue)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t, value=%s\n", args[0], loaded, value)
			return nil
		},
	}
	rmCmd = &cobra.Command{
		Use:   "rm [key]",
		Short: "Removes an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := registry.RemoveTTL([]byte(args[0]), !rawKey)
			if err != nil {
				return err
			}
			fmt.Printf("removed=%t\n", found)
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks whether an entry is present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := registry.HasTTL([]byte(args[0]), !rawKey)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t\n", args[0], ok)
			return nil
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the ttl command
	util.SetupRPCClientFlags(TTLCommands)

	// Set default shard ID for ttl operations
	TTLCommands.PersistentFlags().Int("shard", 100, util.WrapString("ID of the shard to connect to"))

	// Encoding can be skipped per key and per value for pre-framed data
	TTLCommands.PersistentFlags().BoolVar(&rawKey, "raw-key", false, "Skip encoding the key")
	TTLCommands.PersistentFlags().BoolVar(&rawValue, "raw-value", false, "Skip encoding the value")

	putCmd.Flags().Uint64Var(&ttlSeconds, "ttl", 0, "Time to live in seconds (0 for no expiry)")

	// Add subcommands
	TTLCommands.AddCommand(putCmd)
	TTLCommands.AddCommand(getCmd)
	TTLCommands.AddCommand(rmCmd)
	TTLCommands.AddCommand(hasCmd)
}

// setupTTLClient initializes the registry on a remote connection
func setupTTLClient(cmd *cobra.Command, _ []string) error {
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

	registry = dps.NewRegistry(conn, nil)

	return nil
}
