package kv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/dPS/cmd/util"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dPS servers",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfOpsPerThread     = 1000
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("Number of operations per thread for each benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfOpsPerThread = viper.GetInt("ops")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for dPS servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d, Ops per thread: %d\n", perfNumThreads, perfOpsPerThread)
	fmt.Println()

	fmt.Println("starting tests...")

	// Each benchmark records its operation latencies in one timer
	registry := gometrics.NewRegistry()

	runBenchmark(registry, "set", func(counter int, getKey func(int) string) error {
		return rpcConn.Set(getKey(counter), []byte("test"))
	}, nil)

	largeValue := make([]byte, perfLargeValueSizeKB*1024)
	runBenchmark(registry, "set-large", func(counter int, getKey func(int) string) error {
		return rpcConn.Set(getKey(counter), largeValue)
	}, nil)

	prepare := func(iter func(func(string))) {
		iter(func(k string) {
			if err := rpcConn.Set(k, []byte("test")); err != nil {
				fmt.Printf("error preparing key: %v\n", err)
			}
		})
	}

	runBenchmark(registry, "get", func(counter int, getKey func(int) string) error {
		_, _, err := rpcConn.Get(getKey(counter))
		return err
	}, prepare)

	runBenchmark(registry, "exists", func(counter int, getKey func(int) string) error {
		_, err := rpcConn.Exists(getKey(counter))
		return err
	}, prepare)

	runBenchmark(registry, "increment", func(counter int, getKey func(int) string) error {
		_, err := rpcConn.Increment(getKey(counter)+"-ctr", 1)
		return err
	}, nil)

	runBenchmark(registry, "delete", func(counter int, getKey func(int) string) error {
		return rpcConn.Delete(getKey(counter))
	}, prepare)

	runBenchmark(registry, "mixed", func(counter int, getKey func(int) string) error {
		key := getKey(counter)
		switch counter % 4 {
		case 0:
			return rpcConn.Set(key, []byte("test"))
		case 1:
			_, _, err := rpcConn.Get(key)
			return err
		case 2:
			return rpcConn.Delete(key)
		default:
			_, err := rpcConn.Exists(key)
			return err
		}
	}, prepare)

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, registry); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// runBenchmark runs op from perfNumThreads goroutines, timing every call,
// and prints the aggregated timer stats. The optional prepare function is
// called with the key iterator before the timed phase, cleanup always runs.
func runBenchmark(registry gometrics.Registry, name string, op func(counter int, getKey func(int) string) error, prepare func(iter func(func(string)))) {
	if shouldSkip(name) {
		fmt.Printf("%-20sskipped\n", name)
		return
	}

	getKey, iter := getKeys(name)

	if prepare != nil {
		prepare(iter)
	}

	timer := gometrics.GetOrRegisterTimer(name, registry)
	var errCount int64
	var errMu sync.Mutex

	var wg sync.WaitGroup
	for t := 0; t < perfNumThreads; t++ {
		wg.Add(1)
		go func(thread int) {
			defer wg.Done()
			for i := 0; i < perfOpsPerThread; i++ {
				counter := thread*perfOpsPerThread + i
				start := time.Now()
				err := op(counter, getKey)
				timer.UpdateSince(start)
				if err != nil {
					errMu.Lock()
					errCount++
					errMu.Unlock()
				}
			}
		}(t)
	}
	wg.Wait()

	// cleanup
	iter(func(k string) {
		_ = rpcConn.Delete(k)
		_ = rpcConn.Delete(k + "-ctr")
	})

	printResult(name, timer, errCount)
}

// printResult prints the stats of one benchmark timer in a formatted way
func printResult(test string, timer gometrics.Timer, errCount int64) {
	ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})
	fmt.Printf("%-20s%d ops\t%.0f ops/sec\tmean=%s\tp50=%s\tp95=%s\tp99=%s\terrors=%d\n",
		test,
		timer.Count(),
		timer.RateMean(),
		time.Duration(timer.Mean()),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		time.Duration(ps[2]),
		errCount,
	)
}

// writeResultsToCSV writes all benchmark timers of the registry to a CSV file
func writeResultsToCSV(csvPath string, registry gometrics.Registry) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	config := util.GetClientConfig()

	// Write header
	header := []string{
		"Test", "Ops", "OpsPerSec", "MeanNs", "P50Ns", "P95Ns", "P99Ns",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"ShardID", "Serializer", "Transport",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write one row per timer
	var writeErr error
	registry.Each(func(name string, metric interface{}) {
		timer, ok := metric.(gometrics.Timer)
		if !ok || writeErr != nil {
			return
		}

		ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})
		row := []string{
			name,
			strconv.FormatInt(timer.Count(), 10),
			fmt.Sprintf("%.0f", timer.RateMean()),
			fmt.Sprintf("%.0f", timer.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", ps[2]),
			strings.Join(config.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			strconv.Itoa(config.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetShardID(), 10),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			writeErr = fmt.Errorf("failed to write row for test %s: %v", name, err)
		}
	})

	return writeErr
}
