package export

// Column pairs a row key with the label printed in the output.
type Column struct {
	Key   string
	Label string
}

// Table is tabular export content. Column order is the print order.
type Table struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
}
