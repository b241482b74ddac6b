package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Output управляет форматированием вывода CLI.
type Output struct {
	jsonMode bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(jsonMode, os.Stdout, os.Stderr)
}

// NewOutputTo создаёт Output с явными потоками вывода.
func NewOutputTo(jsonMode bool, w, errW io.Writer) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        w,
		errW:     errW,
	}
}

// Print выводит данные: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table выводит данные в виде таблицы через tabwriter.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	// Заголовки
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	// Разделитель
	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	// Строки данных
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит ошибку команды в stderr.
//
// В JSON-режиме ошибка API печатается в том же конверте, что отдаёт
// сервер, чтобы скрипты могли разобрать code и legacy_code.
func (o *Output) Error(err error) {
	if !o.jsonMode {
		fmt.Fprintln(o.errW, "Error:", err)
		return
	}

	detail := errorDetail{Code: "CLI_ERROR", Message: err.Error()}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		detail = errorDetail{Code: apiErr.Code, Message: apiErr.Message, LegacyCode: apiErr.LegacyCode}
	}
	enc := json.NewEncoder(o.errW)
	enc.SetIndent("", "  ")
	enc.Encode(map[string]errorDetail{"error": detail})
}

type errorDetail struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	LegacyCode int    `json:"legacy_code,omitempty"`
}
