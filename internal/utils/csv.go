package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"ribbonBot/internal/domain"
)

var csvHeader = []string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume"}

// WriteKlinesToCSV writes a kline series to a CSV file, one candle per row.
func WriteKlinesToCSV(klines []*domain.Kline, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write(csvHeader)

	for _, k := range klines {
		writer.Write([]string{
			k.OpenTime.Format(time.RFC3339),
			k.CloseTime.Format(time.RFC3339),
			k.Symbol,
			k.Interval,
			strconv.FormatFloat(k.Open, 'f', -1, 64),
			strconv.FormatFloat(k.High, 'f', -1, 64),
			strconv.FormatFloat(k.Low, 'f', -1, 64),
			strconv.FormatFloat(k.Close, 'f', -1, 64),
			strconv.FormatFloat(k.Volume, 'f', -1, 64),
		})
	}
	return writer.Error()
}

// ReadKlinesFromCSV reads a kline series written by WriteKlinesToCSV.
// Rows are returned in file order; time ordering is the caller's concern.
func ReadKlinesFromCSV(filename string) ([]*domain.Kline, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header row.
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("csv file %s is empty", filename)
		}
		return nil, err
	}

	var klines []*domain.Kline
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) != len(csvHeader) {
			return nil, fmt.Errorf("csv line %d: expected %d fields, got %d", line, len(csvHeader), len(record))
		}

		k := &domain.Kline{Symbol: record[2], Interval: record[3], IsFinal: true}
		if k.OpenTime, err = time.Parse(time.RFC3339, record[0]); err != nil {
			return nil, fmt.Errorf("csv line %d: parsing open_time: %w", line, err)
		}
		if k.CloseTime, err = time.Parse(time.RFC3339, record[1]); err != nil {
			return nil, fmt.Errorf("csv line %d: parsing close_time: %w", line, err)
		}
		if k.Open, err = strconv.ParseFloat(record[4], 64); err != nil {
			return nil, fmt.Errorf("csv line %d: parsing open: %w", line, err)
		}
		if k.High, err = strconv.ParseFloat(record[5], 64); err != nil {
			return nil, fmt.Errorf("csv line %d: parsing high: %w", line, err)
		}
		if k.Low, err = strconv.ParseFloat(record[6], 64); err != nil {
			return nil, fmt.Errorf("csv line %d: parsing low: %w", line, err)
		}
		if k.Close, err = strconv.ParseFloat(record[7], 64); err != nil {
			return nil, fmt.Errorf("csv line %d: parsing close: %w", line, err)
		}
		if k.Volume, err = strconv.ParseFloat(record[8], 64); err != nil {
			return nil, fmt.Errorf("csv line %d: parsing volume: %w", line, err)
		}
		klines = append(klines, k)
	}
	return klines, nil
}
