package influxdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// deviceIDColumn is the column promoted from field to tag so per-device
// queries stay indexed.
const deviceIDColumn = "device_id"

// Append durably records an event row in the sink.
//
// The call shape matches the persistence contract used across Hearthwatch:
// a table name, an ordered column list, a matching value tuple, and the
// event timestamp. Columns and values must have equal length; the
// device_id column (if present) becomes an InfluxDB tag, all other columns
// become fields.
//
// The write is non-blocking; data is batched and sent asynchronously, so a
// slow or failing sink never stalls event processing. Asynchronous write
// failures surface through the SetOnError callback.
//
// Parameters:
//   - table: Measurement name (e.g. "sensor_events")
//   - columns: Ordered column names
//   - values: Value tuple matching columns
//   - ts: Event timestamp
//
// Returns:
//   - bool: false if the sink is unavailable or the row is malformed,
//     true if the row was accepted for writing
func (c *Client) Append(table string, columns []string, values []any, ts time.Time) bool {
	if c == nil || !c.IsConnected() {
		return false
	}
	if table == "" || len(columns) == 0 || len(columns) != len(values) {
		return false
	}

	tags := make(map[string]string)
	fields := make(map[string]interface{}, len(columns))
	for i, col := range columns {
		if col == deviceIDColumn {
			if id, ok := values[i].(string); ok {
				tags[deviceIDColumn] = id
				continue
			}
		}
		fields[col] = values[i]
	}
	if len(fields) == 0 {
		return false
	}

	point := write.NewPoint(table, tags, fields, ts)
	c.writeAPI.WritePoint(point)
	return true
}

// LastReading returns the most recent numeric value recorded for a device.
//
// The classifier uses this to compare a plug or meter's new reading against
// its previous one for threshold-crossing detection.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - table: Measurement the reading was appended to
//   - deviceID: Device tag value
//   - field: Field name holding the numeric reading
//
// Returns:
//   - float64: The last recorded value
//   - error: ErrNoPreviousReading if the device has no history,
//     ErrNotConnected if the sink is unavailable, or the query error
func (c *Client) LastReading(ctx context.Context, table, deviceID, field string) (float64, error) {
	if c == nil || !c.IsConnected() {
		return 0, ErrNotConnected
	}

	queryCtx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	flux := fmt.Sprintf(`from(bucket: %q)
  |> range(start: -30d)
  |> filter(fn: (r) => r._measurement == %q and r.device_id == %q and r._field == %q)
  |> last()`,
		c.cfg.Bucket, table, escapeFluxString(deviceID), field)

	result, err := c.queryAPI.Query(queryCtx, flux)
	if err != nil {
		return 0, fmt.Errorf("querying last reading: %w", err)
	}
	defer result.Close() //nolint:errcheck // Best-effort close of query stream

	for result.Next() {
		switch v := result.Record().Value().(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		}
	}
	if err := result.Err(); err != nil {
		return 0, fmt.Errorf("reading query result: %w", err)
	}

	return 0, ErrNoPreviousReading
}

// escapeFluxString strips characters that would break out of a flux string
// literal. Device IDs are MAC addresses, so this is belt and braces for
// unregistered hardware sending arbitrary identifiers.
func escapeFluxString(s string) string {
	s = strings.ReplaceAll(s, `\`, ``)
	return strings.ReplaceAll(s, `"`, ``)
}
