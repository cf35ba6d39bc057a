package main

import (
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/aretw0/livelist"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

type docView struct {
	ID     string          `json:"id"`
	Fields livelist.Fields `json:"fields"`
}

// formatDoc renders a document on one line: its ID and its fields as JSON.
func formatDoc(doc livelist.Document) string {
	data, err := codec.MarshalToString(doc.Fields)
	if err != nil {
		data = "<" + err.Error() + ">"
	}
	return doc.ID + " " + data
}

func printJSON(v any) error {
	enc := codec.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
