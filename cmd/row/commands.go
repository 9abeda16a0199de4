package row

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dRow/cmd/util"
	"github.com/ValentinKolb/dRow/lib/table"
	"github.com/spf13/cobra"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads a single row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := tableClient.ReadRow(cmd.Context(), []byte(args[0]))
			if err != nil {
				return err
			}
			if row == nil {
				fmt.Printf("key=%s, found=false\n", args[0])
				return nil
			}
			printRow(row)
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key] [family] [qualifier] [value]",
		Short: "Writes a single cell",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, _ := cmd.Flags().GetInt64("timestamp")
			err := tableClient.MutateRow(cmd.Context(), []byte(args[0]), []table.Mutation{
				table.NewSetCellMutation(args[1], []byte(args[2]), []byte(args[3]), ts),
			})
			if err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key] [family] [qualifier]",
		Short: "Deletes a row, a column family of a row, or a single column",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var m table.Mutation
			switch len(args) {
			case 1:
				m = table.NewDeleteFromRowMutation()
			case 2:
				m = table.NewDeleteFromFamilyMutation(args[1])
			case 3:
				m = table.NewDeleteFromColumnMutation(args[1], []byte(args[2]))
			}
			if err := tableClient.MutateRow(cmd.Context(), []byte(args[0]), []table.Mutation{m}); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	batchCmd = &cobra.Command{
		Use:   "batch [family] [qualifier] [key=value ...]",
		Short: "Writes one cell in many rows with a single batch request",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, _ := cmd.Flags().GetInt64("timestamp")
			entries := make([]table.MutateRowsEntry, 0, len(args)-2)
			for _, pair := range args[2:] {
				key, value, ok := strings.Cut(pair, "=")
				if !ok {
					return fmt.Errorf("invalid entry %q (expected key=value)", pair)
				}
				entries = append(entries, table.MutateRowsEntry{
					RowKey: []byte(key),
					Mutations: []table.Mutation{
						table.NewSetCellMutation(args[0], []byte(args[1]), []byte(value), ts),
					},
				})
			}
			results, err := tableClient.MutateRows(cmd.Context(), entries)
			if err != nil {
				return err
			}
			for i, result := range results {
				if result.Err != "" {
					fmt.Printf("key=%s, error=%s\n", entries[i].RowKey, result.Err)
				} else {
					fmt.Printf("key=%s, ok\n", entries[i].RowKey)
				}
			}
			return nil
		},
	}
	condSetCmd = &cobra.Command{
		Use:   "condset [key] [family] [qualifier] [expected] [value]",
		Short: "Writes a cell only if its current value matches",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, _ := cmd.Flags().GetInt64("timestamp")
			matched, err := tableClient.CheckAndMutateRow(cmd.Context(), []byte(args[0]),
				&table.CellCondition{Family: args[1], Qualifier: []byte(args[2]), ValueEquals: []byte(args[3])},
				[]table.Mutation{table.NewSetCellMutation(args[1], []byte(args[2]), []byte(args[4]), ts)},
				nil,
			)
			if err != nil {
				return err
			}
			fmt.Printf("matched=%t\n", matched)
			return nil
		},
	}
	incrCmd = &cobra.Command{
		Use:   "incr [key] [family] [qualifier] [amount]",
		Short: "Atomically increments a 64 bit counter cell",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[3], 10, 64)
			if err != nil {
				return fmt.Errorf("amount must be a number: %w", err)
			}
			row, err := tableClient.ReadModifyWriteRow(cmd.Context(), []byte(args[0]), []table.ReadModifyWriteRule{
				{Family: args[1], Qualifier: []byte(args[2]), IncrementAmount: amount},
			})
			if err != nil {
				return err
			}
			// Counters are stored as big endian signed 64 bit values
			for _, cell := range row.Cells {
				if cell.Family == args[1] && bytes.Equal(cell.Qualifier, []byte(args[2])) && len(cell.Value) == 8 {
					fmt.Printf("counter=%d\n", int64(binary.BigEndian.Uint64(cell.Value)))
					return nil
				}
			}
			printRow(row)
			return nil
		},
	}
	appendCmd = &cobra.Command{
		Use:   "append [key] [family] [qualifier] [value]",
		Short: "Atomically appends to a cell value",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := tableClient.ReadModifyWriteRow(cmd.Context(), []byte(args[0]), []table.ReadModifyWriteRule{
				{Family: args[1], Qualifier: []byte(args[2]), AppendValue: []byte(args[3])},
			})
			if err != nil {
				return err
			}
			printRow(row)
			return nil
		},
	}
	sampleCmd = &cobra.Command{
		Use:   "sample",
		Short: "Samples the row keys of the table for split points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := tableClient.SampleRowKeys(cmd.Context())
			if err != nil {
				return err
			}
			for _, sample := range samples {
				fmt.Printf("key=%q, offset=%d\n", sample.RowKey, sample.OffsetBytes)
			}
			return nil
		},
	}
	scanCmd = &cobra.Command{
		Use:   "scan [startKey] [endKey]",
		Short: "Streams all rows of a key range",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt64("limit")
			query := table.ReadQuery{Limit: limit}
			if len(args) > 0 {
				query.Range.StartKey = []byte(args[0])
			}
			if len(args) > 1 {
				query.Range.EndKey = []byte(args[1])
			}

			sc, err := tableClient.ReadRows(cmd.Context(), query)
			if err != nil {
				return err
			}
			defer sc.Close()

			count := 0
			for {
				row, ok, err := sc.Next()
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				printRow(row)
				count++
			}
			fmt.Printf("%d row(s)\n", count)
			return nil
		},
	}
)

func init() {
	tsUsage := util.WrapString("Cell timestamp in microseconds, -1 lets the server assign it (which makes the write unsafe to retry)")
	setCmd.Flags().Int64("timestamp", table.ServerTime, tsUsage)
	batchCmd.Flags().Int64("timestamp", table.ServerTime, tsUsage)
	condSetCmd.Flags().Int64("timestamp", table.ServerTime, tsUsage)
	scanCmd.Flags().Int64("limit", 0, util.WrapString("Maximum number of rows to return (0 means unlimited)"))
}

// printRow prints one row with all its cells
func printRow(row *table.Row) {
	fmt.Printf("key=%s\n", row.Key)
	for _, cell := range row.Cells {
		fmt.Printf("  %s:%s=%q @%d\n", cell.Family, cell.Qualifier, cell.Value, cell.TimestampMicros)
	}
}
