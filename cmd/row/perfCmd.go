package row

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dRow/cmd/util"
	"github.com/ValentinKolb/dRow/lib/table"
	"github.com/ValentinKolb/dRow/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dRow servers",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__perf"
	perfFamily           = "f"
	perfQualifier        = []byte("q")
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	RowCommands.PersistentFlags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	RowCommands.PersistentFlags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	RowCommands.PersistentFlags().Int(key, 1000, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	RowCommands.PersistentFlags().Int(key, 100, util.WrapString("How many different row keys to use for the tests"))
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
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	fmt.Println("Performance testing tool for dRow servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	// Writes carry an explicit timestamp so every benchmarked request stays
	// safe to retry
	ts := time.Now().UnixMicro()

	// Create result and latency maps
	results := make(map[string]testing.BenchmarkResult)
	timers := make(map[string]metrics.Timer)

	setTimer := metrics.NewTimer()
	setResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("set") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("set")

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				err := tableClient.MutateRow(ctx, []byte(k), []table.Mutation{table.NewDeleteFromRowMutation()})
				if err != nil {
					log.Printf("(set) - error deleting row: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				err := tableClient.MutateRow(ctx, []byte(getKey(counter)), []table.Mutation{
					table.NewSetCellMutation(perfFamily, perfQualifier, []byte("test"), ts),
				})
				setTimer.UpdateSince(start)
				if err != nil {
					log.Printf("(set) - error setting row: %v\n", err)
				}
				counter++
			}
		})
	})

	results["set"] = setResult
	timers["set"] = setTimer
	printResult("set", setResult, setTimer)

	setLargeTimer := metrics.NewTimer()
	setLargeResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("set-large") {
			return
		}

		// prepare large value
		largeValue := make([]byte, perfLargeValueSizeKB*1024)

		// prepare keys
		getKey, iter := getKeys("set-large")

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				err := tableClient.MutateRow(ctx, []byte(k), []table.Mutation{table.NewDeleteFromRowMutation()})
				if err != nil {
					log.Printf("(set-large) - error deleting row: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				err := tableClient.MutateRow(ctx, []byte(getKey(counter)), []table.Mutation{
					table.NewSetCellMutation(perfFamily, perfQualifier, largeValue, ts),
				})
				setLargeTimer.UpdateSince(start)
				if err != nil {
					log.Printf("(set-large) - error setting row: %v\n", err)
				}
				counter++
			}
		})
	})

	results["set-large"] = setLargeResult
	timers["set-large"] = setLargeTimer
	printResult("set-large", setLargeResult, setLargeTimer)

	getTimer := metrics.NewTimer()
	getResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("get")

		// set rows
		iter(func(k string) {
			err := tableClient.MutateRow(ctx, []byte(k), []table.Mutation{
				table.NewSetCellMutation(perfFamily, perfQualifier, []byte("test"), ts),
			})
			if err != nil {
				log.Printf("(get) - error setting row: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				err := tableClient.MutateRow(ctx, []byte(k), []table.Mutation{table.NewDeleteFromRowMutation()})
				if err != nil {
					log.Printf("(get) - error deleting row: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				_, err := tableClient.ReadRow(ctx, []byte(getKey(counter)))
				getTimer.UpdateSince(start)
				if err != nil {
					log.Printf("(get) - error reading row: %v\n", err)
				}
				counter++
			}
		})
	})

	results["get"] = getResult
	timers["get"] = getTimer
	printResult("get", getResult, getTimer)

	getMissingTimer := metrics.NewTimer()
	getMissingResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get-missing") {
			return
		}

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				key := fmt.Sprintf("%s-missing-%d", perfKeyPrefix, counter%perfKeySpread)
				start := time.Now()
				row, err := tableClient.ReadRow(ctx, []byte(key))
				getMissingTimer.UpdateSince(start)
				if err != nil {
					log.Printf("(get-missing) - error reading row: %v\n", err)
				} else if row != nil {
					log.Printf("(get-missing) - unexpected row for key %s\n", key)
				}
				counter++
			}
		})
	})

	results["get-missing"] = getMissingResult
	timers["get-missing"] = getMissingTimer
	printResult("get-missing", getMissingResult, getMissingTimer)

	deleteTimer := metrics.NewTimer()
	deleteResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("delete") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("delete")

		// set rows
		iter(func(k string) {
			err := tableClient.MutateRow(ctx, []byte(k), []table.Mutation{
				table.NewSetCellMutation(perfFamily, perfQualifier, []byte("test"), ts),
			})
			if err != nil {
				log.Printf("(delete) - error setting row: %v\n", err)
			}
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				err := tableClient.MutateRow(ctx, []byte(getKey(counter)), []table.Mutation{table.NewDeleteFromRowMutation()})
				deleteTimer.UpdateSince(start)
				if err != nil {
					log.Printf("(delete) - error deleting row: %v\n", err)
				}
				counter++
			}
		})
	})

	results["delete"] = deleteResult
	timers["delete"] = deleteTimer
	printResult("delete", deleteResult, deleteTimer)

	incrTimer := metrics.NewTimer()
	incrResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("incr") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("incr")

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				err := tableClient.MutateRow(ctx, []byte(k), []table.Mutation{table.NewDeleteFromRowMutation()})
				if err != nil {
					log.Printf("(incr) - error deleting row: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				_, err := tableClient.ReadModifyWriteRow(ctx, []byte(getKey(counter)), []table.ReadModifyWriteRule{
					{Family: perfFamily, Qualifier: perfQualifier, IncrementAmount: 1},
				})
				incrTimer.UpdateSince(start)
				if err != nil {
					log.Printf("(incr) - error incrementing row: %v\n", err)
				}
				counter++
			}
		})
	})

	results["incr"] = incrResult
	timers["incr"] = incrTimer
	printResult("incr", incrResult, incrTimer)

	scanTimer := metrics.NewTimer()
	scanResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("scan") {
			return
		}

		// prepare keys
		_, iter := getKeys("scan")

		// set rows
		iter(func(k string) {
			err := tableClient.MutateRow(ctx, []byte(k), []table.Mutation{
				table.NewSetCellMutation(perfFamily, perfQualifier, []byte("test"), ts),
			})
			if err != nil {
				log.Printf("(scan) - error setting row: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				err := tableClient.MutateRow(ctx, []byte(k), []table.Mutation{table.NewDeleteFromRowMutation()})
				if err != nil {
					log.Printf("(scan) - error deleting row: %v\n", err)
				}
			})
		})

		query := table.ReadQuery{
			Range: table.RowRange{StartKey: []byte(fmt.Sprintf("%s-scan-", perfKeyPrefix))},
			Limit: int64(perfKeySpread),
		}

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				start := time.Now()
				_, err := tableClient.ReadAllRows(ctx, query)
				scanTimer.UpdateSince(start)
				if err != nil {
					log.Printf("(scan) - error scanning rows: %v\n", err)
				}
			}
		})
	})

	results["scan"] = scanResult
	timers["scan"] = scanTimer
	printResult("scan", scanResult, scanTimer)

	mixedTimer := metrics.NewTimer()
	mixedResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("mixed") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("mixed")

		// set rows
		iter(func(k string) {
			err := tableClient.MutateRow(ctx, []byte(k), []table.Mutation{
				table.NewSetCellMutation(perfFamily, perfQualifier, []byte("test"), ts),
			})
			if err != nil {
				log.Printf("(mixed) - error setting row: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				err := tableClient.MutateRow(ctx, []byte(k), []table.Mutation{table.NewDeleteFromRowMutation()})
				if err != nil {
					log.Printf("(mixed) - error deleting row: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				key := []byte(getKey(counter))
				start := time.Now()
				var err error
				switch counter % 4 {
				case 0: // set
					err = tableClient.MutateRow(ctx, key, []table.Mutation{
						table.NewSetCellMutation(perfFamily, perfQualifier, []byte("test"), ts),
					})
				case 1: // get
					_, err = tableClient.ReadRow(ctx, key)
				case 2: // incr
					_, err = tableClient.ReadModifyWriteRow(ctx, key, []table.ReadModifyWriteRule{
						{Family: perfFamily, Qualifier: []byte("ctr"), IncrementAmount: 1},
					})
				case 3: // delete
					err = tableClient.MutateRow(ctx, key, []table.Mutation{table.NewDeleteFromRowMutation()})
				}
				mixedTimer.UpdateSince(start)

				if err != nil {
					log.Printf("(mixed) - error performing operation (%d): %v\n", counter%4, err)
				}
				counter++
			}
		})
	})

	results["mixed"] = mixedResult
	timers["mixed"] = mixedTimer
	printResult("mixed", mixedResult, mixedTimer)

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, timers, util.GetClientConfig()); err != nil {
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

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult, timer metrics.Timer) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Latency distribution over all threads
	ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p95=%s p99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec,
		time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(ps[2]))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, timers map[string]metrics.Timer, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "MeanLatency", "P50", "P95", "P99", "Skipped",
		"Endpoints", "Table", "TimeoutSec", "MaxRetries", "ConnectionsPerEndpoint",
		"Serializer", "Transport",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		timer := timers[test]
		ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			time.Duration(timer.Mean()).String(),
			time.Duration(ps[0]).String(),
			time.Duration(ps[1]).String(),
			time.Duration(ps[2]).String(),
			skipped,
			strings.Join(config.Transport.Endpoints, ";"),
			config.Table,
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Retry.MaxRetries),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
