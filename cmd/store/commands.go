package store

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	keyTypeTag   string
	valueTypeTag string
	safe         bool

	createCmd = &cobra.Command{
		Use:   "create [name]",
		Short: "Creates a named store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := registry.CreateStore(args[0], keyTypeTag, valueTypeTag)
			if err != nil {
				return err
			}
			fmt.Printf("created store %q, id=%d\n", store.Name(), store.ID())
			return nil
		},
	}
	putCmd = &cobra.Command{
		Use:   "put [store] [key] [value]",
		Short: "Writes a key into a store",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := registry.FindStore(args[0])
			if err != nil {
				return err
			}
			if safe {
				err = store.PutSafe([]byte(args[1]), []byte(args[2]))
			} else {
				err = store.Put([]byte(args[1]), []byte(args[2]))
			}
			if err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [store] [key]",
		Short: "Reads a key from a store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := registry.FindStore(args[0])
			if err != nil {
				return err
			}
			var (
				value  []byte
				loaded bool
			)
			if safe {
				value, loaded, err = store.GetSafe([]byte(args[1]))
			} else {
				value, loaded, err = store.Get([]byte(args[1]))
			}
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t, value=%s\n", args[1], loaded, value)
			return nil
		},
	}
	rmCmd = &cobra.Command{
		Use:   "rm [store] [key]",
		Short: "Removes a key from a store, or the whole store if no key is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := registry.FindStore(args[0])
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if err := registry.RemoveStore(store); err != nil {
					return err
				}
				fmt.Printf("removed store %q\n", args[0])
				return nil
			}
			found, err := store.Remove([]byte(args[1]))
			if err != nil {
				return err
			}
			fmt.Printf("removed=%t\n", found)
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [store] [key]",
		Short: "Checks whether a key is present in a store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := registry.FindStore(args[0])
			if err != nil {
				return err
			}
			ok, err := store.Has([]byte(args[1]))
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t\n", args[1], ok)
			return nil
		},
	}
	sizeCmd = &cobra.Command{
		Use:   "size [store]",
		Short: "Prints the number of data items in a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := registry.FindStore(args[0])
			if err != nil {
				return err
			}
			size, err := store.Size()
			if err != nil {
				return err
			}
			fmt.Printf("size=%d\n", size)
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear [store]",
		Short: "Removes all data items from a store but keeps the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := registry.FindStore(args[0])
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Println("cleared successfully")
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys [store]",
		Short: "Lists all keys of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return iterate(args[0], func(key, _ []byte) {
				fmt.Printf("%s\n", key)
			})
		},
	}
	iterateCmd = &cobra.Command{
		Use:   "iterate [store]",
		Short: "Lists all key value pairs of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return iterate(args[0], func(key, value []byte) {
				fmt.Printf("%s=%s\n", key, value)
			})
		},
	}
)

func init() {
	createCmd.Flags().StringVar(&keyTypeTag, "key-type", "rstring", "Type tag recorded for the store's keys")
	createCmd.Flags().StringVar(&valueTypeTag, "value-type", "rstring", "Type tag recorded for the store's values")
	putCmd.Flags().BoolVar(&safe, "safe", false, "Check store existence and take the store lock")
	getCmd.Flags().BoolVar(&safe, "safe", false, "Check store existence and take the store lock")
}

// iterate walks all data items of a store and calls fn for each
func iterate(name string, fn func(key, value []byte)) error {
	store, err := registry.FindStore(name)
	if err != nil {
		return err
	}
	it, err := store.NewIterator()
	if err != nil {
		return err
	}
	defer func() { _ = it.Close() }()

	for {
		key, value, ok, err := it.GetNext()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		fn(key, value)
	}
}
