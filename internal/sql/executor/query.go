package executor

type Scan struct {
	table string
}

func (s Scan) Execute(txn Transaction) (ResultSet, error) {
	table, err := txn.MustGetTable(s.table)
	if err != nil {
		return nil, err
	}
	rows, err := txn.ScanTable(s.table)
	if err != nil {
		return nil, err
	}
	return ScanResult{Columns: table.ColumnNames(), Rows: rows}, nil
}
