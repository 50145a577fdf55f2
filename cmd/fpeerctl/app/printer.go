package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/gosuri/uitable"
	"gopkg.in/yaml.v3"
)

// printer renders vehicle documents as returned by FleetService.
type printer interface {
	PrintVehicles(w io.Writer, vehicles []map[string]any) error
	PrintVehicle(w io.Writer, vehicle map[string]any) error
}

func newPrinter(format string) (printer, error) {
	switch format {
	case "table", "":
		return tablePrinter{}, nil
	case "json":
		return jsonPrinter{}, nil
	case "yaml":
		return yamlPrinter{}, nil
	}
	return nil, fmt.Errorf("unknown output format %q, want table, json or yaml", format)
}

type jsonPrinter struct{}

func (jsonPrinter) PrintVehicles(w io.Writer, vehicles []map[string]any) error {
	return jsonPrinter{}.print(w, vehicles)
}

func (jsonPrinter) PrintVehicle(w io.Writer, vehicle map[string]any) error {
	return jsonPrinter{}.print(w, vehicle)
}

func (jsonPrinter) print(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type yamlPrinter struct{}

func (yamlPrinter) PrintVehicles(w io.Writer, vehicles []map[string]any) error {
	return yamlPrinter{}.print(w, vehicles)
}

func (yamlPrinter) PrintVehicle(w io.Writer, vehicle map[string]any) error {
	return yamlPrinter{}.print(w, vehicle)
}

func (yamlPrinter) print(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

type tablePrinter struct{}

var vehicleColumns = []struct {
	header string
	key    string
}{
	{"BUS ID", "bus_id"},
	{"NUMBER", "bus_number"},
	{"STATUS", "operational_status"},
	{"LATITUDE", "latitude"},
	{"LONGITUDE", "longitude"},
	{"SPEED", "speed"},
	{"LAST UPDATE", "last_update_at"},
}

func (tablePrinter) PrintVehicles(w io.Writer, vehicles []map[string]any) error {
	table := uitable.New()
	table.MaxColWidth = 40

	headers := make([]any, 0, len(vehicleColumns))
	for _, c := range vehicleColumns {
		headers = append(headers, c.header)
	}
	table.AddRow(headers...)

	for _, v := range vehicles {
		row := make([]any, 0, len(vehicleColumns))
		for _, c := range vehicleColumns {
			row = append(row, cell(v[c.key]))
		}
		table.AddRow(row...)
	}

	_, err := fmt.Fprintln(w, table)
	return err
}

func (tablePrinter) PrintVehicle(w io.Writer, vehicle map[string]any) error {
	table := uitable.New()
	table.MaxColWidth = 60
	table.Separator = " : "

	for _, key := range []string{
		"bus_id", "bus_number", "operational_status", "label", "tracked",
		"latitude", "longitude", "speed", "distance", "operating_time",
		"driver_name", "phone", "last_update_at",
	} {
		if v, ok := vehicle[key]; ok {
			table.AddRow(key, cell(v))
		}
	}

	_, err := fmt.Fprintln(w, table)
	return err
}

// cell formats a JSON value for a table cell.
func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		if x == "" {
			return "-"
		}
		return x
	default:
		return fmt.Sprint(x)
	}
}
