package lock

import (
	"fmt"

	"github.com/ValentinKolb/dPS/cmd/util"
	"github.com/ValentinKolb/dPS/lib/lockmgr"
	"github.com/ValentinKolb/dPS/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcLockMgr   lockmgr.ILockManager
	leaseSeconds float64
	maxWait      float64

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:               "lock",
		Short:             "Perform lock operations",
		PersistentPreRunE: setupLockClient,
	}

	// acquireCmd represents the acquire command
	acquireCmd = &cobra.Command{
		Use:   "acquire [name]",
		Short: "Acquire a named lock",
		Long:  "Acquire a named lock. The lease expires automatically after the lease time, even if the holder never releases it.",
		Args:  cobra.ExactArgs(1),
		RunE:  runAcquire,
	}

	// releaseCmd represents the release command
	releaseCmd = &cobra.Command{
		Use:   "release [name]",
		Short: "Release a previously acquired lock",
		Args:  cobra.ExactArgs(1),
		RunE:  runRelease,
	}

	// pidCmd represents the pid command
	pidCmd = &cobra.Command{
		Use:   "pid [name]",
		Short: "Print the process id recorded by the most recent lock holder",
		Args:  cobra.ExactArgs(1),
		RunE:  runPid,
	}

	// removeCmd represents the remove command
	removeCmd = &cobra.Command{
		Use:   "remove [name]",
		Short: "Remove a named lock and all its bookkeeping",
		Args:  cobra.ExactArgs(1),
		RunE:  runRemove,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add subcommands to lock command
	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(releaseCmd)
	LockCommands.AddCommand(pidCmd)
	LockCommands.AddCommand(removeCmd)

	// Add common RPC flags to the lock command
	util.SetupRPCClientFlags(LockCommands)

	// Set default shard ID for lock operations (different from KV default)
	LockCommands.PersistentFlags().Int("shard", 200, util.WrapString("ID of the shard to connect to"))

	// Add flags specific to acquire
	acquireCmd.Flags().Float64Var(&leaseSeconds, "lease", 30, "Lease time in seconds after which the lock expires on its own")
	acquireCmd.Flags().Float64Var(&maxWait, "max-wait", 10, "How many seconds to wait for the lock before giving up (0 for a single attempt)")
}

// setupLockClient initializes the lock manager client
func setupLockClient(cmd *cobra.Command, _ []string) error {
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

	// The lock manager runs client side on top of the remote connection
	rpcLockMgr = lockmgr.NewLockManager(conn, nil)

	return nil
}

// runAcquire handles the acquire lock command
func runAcquire(cmd *cobra.Command, args []string) error {
	name := args[0]

	// Register the lock (idempotent) and resolve its id
	id, err := rpcLockMgr.CreateOrGetLock(name)
	if err != nil {
		return fmt.Errorf("failed to create lock: %v", err)
	}

	// Attempt to acquire the lock
	acquired, err := rpcLockMgr.AcquireLock(id, leaseSeconds, maxWait)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %v", err)
	}

	fmt.Printf("acquired=%t, id=%d\n", acquired, id)
	return nil
}

// runRelease handles the release lock command
func runRelease(_ *cobra.Command, args []string) error {
	name := args[0]

	id, err := rpcLockMgr.CreateOrGetLock(name)
	if err != nil {
		return fmt.Errorf("failed to resolve lock: %v", err)
	}

	if err := rpcLockMgr.ReleaseLock(id); err != nil {
		return fmt.Errorf("failed to release lock: %v", err)
	}

	fmt.Println("released")
	return nil
}

// runPid handles the pid command
func runPid(_ *cobra.Command, args []string) error {
	name := args[0]

	id, err := rpcLockMgr.CreateOrGetLock(name)
	if err != nil {
		return fmt.Errorf("failed to resolve lock: %v", err)
	}

	pid, err := rpcLockMgr.GetPidForLock(id)
	if err != nil {
		return fmt.Errorf("failed to read lock pid: %v", err)
	}

	fmt.Printf("pid=%d\n", pid)
	return nil
}

// runRemove handles the remove command
func runRemove(_ *cobra.Command, args []string) error {
	name := args[0]

	id, err := rpcLockMgr.CreateOrGetLock(name)
	if err != nil {
		return fmt.Errorf("failed to resolve lock: %v", err)
	}

	if err := rpcLockMgr.RemoveLock(id); err != nil {
		return fmt.Errorf("failed to remove lock: %v", err)
	}

	fmt.Println("removed")
	return nil
}
