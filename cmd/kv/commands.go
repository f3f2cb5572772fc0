package kv

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// parseTTL parses a ttl argument given in seconds into a duration
func parseTTL(arg string) (time.Duration, error) {
	seconds, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("ttl must be a number of seconds: %w", err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			if err := rpcConn.Set(key, []byte(value)); err != nil {
				return err
			} else {
				fmt.Println("set successfully")
			}
			return nil
		},
	}
	setXCmd = &cobra.Command{
		Use:   "setx [key] [value] [ttl]",
		Short: "Sets the value for a key with a time to live (in seconds)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			ttl, err := parseTTL(args[2])
			if err != nil {
				return err
			}
			if err := rpcConn.SetX(key, []byte(value), ttl); err != nil {
				return err
			} else {
				fmt.Println("setx successfully")
			}
			return nil
		},
	}
	setIfAbsentCmd = &cobra.Command{
		Use:   "setifabsent [key] [value] [ttl]",
		Short: "Sets the value for a key if the key is not already set, with an optional time to live (in seconds, 0 for none)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			ttl, err := parseTTL(args[2])
			if err != nil {
				return err
			}
			if ok, err := rpcConn.SetIfAbsent(key, []byte(value), ttl); err != nil {
				return err
			} else {
				fmt.Printf("inserted=%t\n", ok)
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if resp, ok, err := rpcConn.Get(key); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%v, resp=%s\n", key, ok, resp)
			}
			return nil
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if found, err := rpcConn.Exists(key); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%t\n", key, found)
			}
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := rpcConn.Delete(key); err != nil {
				return err
			} else {
				fmt.Println("delete successfully")
			}
			return nil
		},
	}
	incrCmd = &cobra.Command{
		Use:   "incr [key] [delta]",
		Short: "Adds a delta to the counter stored at key and prints the new value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			delta, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("delta must be a number: %w", err)
			}
			if value, err := rpcConn.Increment(key, delta); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, value=%d\n", key, value)
			}
			return nil
		},
	}
	expireCmd = &cobra.Command{
		Use:   "expire [key] [ttl]",
		Short: "Arms a time to live (in seconds) on an existing key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			ttl, err := parseTTL(args[1])
			if err != nil {
				return err
			}
			if ok, err := rpcConn.Expire(key, ttl); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%t\n", key, ok)
			}
			return nil
		},
	}
	hGetCmd = &cobra.Command{
		Use:   "hget [key] [field]",
		Short: "Reads a field of the hash stored at key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, field := args[0], args[1]
			if resp, ok, err := rpcConn.HGet(key, field); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, field=%s, found=%v, resp=%s\n", key, field, ok, resp)
			}
			return nil
		},
	}
	hExistsCmd = &cobra.Command{
		Use:   "hexists [key] [field]",
		Short: "Checks if a field of the hash stored at key exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, field := args[0], args[1]
			if found, err := rpcConn.HExists(key, field); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, field=%s, found=%t\n", key, field, found)
			}
			return nil
		},
	}
	hSetCmd = &cobra.Command{
		Use:   "hset [key] [field] [value]",
		Short: "Sets a field of the hash stored at key",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, field, value := args[0], args[1], args[2]
			if created, err := rpcConn.HSet(key, field, []byte(value)); err != nil {
				return err
			} else {
				fmt.Printf("created=%t\n", created)
			}
			return nil
		},
	}
	hDelCmd = &cobra.Command{
		Use:   "hdel [key] [field]...",
		Short: "Deletes fields of the hash stored at key",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, fields := args[0], args[1:]
			if removed, err := rpcConn.HDelete(key, fields...); err != nil {
				return err
			} else {
				fmt.Printf("removed=%d\n", removed)
			}
			return nil
		},
	}
	hLenCmd = &cobra.Command{
		Use:   "hlen [key]",
		Short: "Counts the fields of the hash stored at key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if length, err := rpcConn.HLen(key); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, fields=%d\n", key, length)
			}
			return nil
		},
	}
	hKeysCmd = &cobra.Command{
		Use:   "hkeys [key]",
		Short: "Lists the field names of the hash stored at key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if fields, err := rpcConn.HKeys(key); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, fields=[%s]\n", key, strings.Join(fields, ", "))
			}
			return nil
		},
	}
	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Checks the connection to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := rpcConn.Ping(); err != nil {
				return err
			}
			fmt.Printf("pong (%s)\n", time.Since(start))
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints information about the back end of the shard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := rpcConn.GetInfo()
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
)
