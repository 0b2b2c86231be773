package gate_test

import (
	"errors"
	"testing"

	"github.com/sqlsage/sqlsage/internal/gate"
)

func TestCheckStatementDenylist(t *testing.T) {
	tests := []struct {
		name      string
		statement string
		wantErr   bool
	}{
		{"plain select", "SELECT id, total FROM orders", false},
		{"drop", "DROP TABLE orders", true},
		{"mixed case drop", "DrOp TaBlE orders", true},
		{"delete", "delete from orders where id = 1", true},
		{"truncate", "TRUNCATE orders", true},
		{"alter", "ALTER TABLE orders ADD COLUMN x int", true},
		{"grant", "GRANT ALL ON orders TO intruder", true},
		{"revoke", "REVOKE ALL ON orders FROM app", true},
		{"insert", "INSERT INTO orders VALUES (1)", true},
		{"update keyword", "UPDATE orders SET total = 0", true},
		{"updated_at column passes", "SELECT updated_at FROM orders", false},
		{"deleted_flag column passes", "SELECT deleted_flag FROM orders", false},
		{"insertion substring passes", "SELECT insertion_order FROM events", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.CheckStatement(tt.statement)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckStatement(%q) error = %v, wantErr %v", tt.statement, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, gate.ErrUnsafeStatement) {
				t.Errorf("CheckStatement(%q) error = %v, want ErrUnsafeStatement", tt.statement, err)
			}
		})
	}
}

func TestEnforceRowLimit(t *testing.T) {
	tests := []struct {
		name      string
		statement string
		want      string
	}{
		{
			"appends when missing",
			"SELECT * FROM orders",
			"SELECT * FROM orders LIMIT 1000",
		},
		{
			"strips trailing semicolon",
			"SELECT * FROM orders;",
			"SELECT * FROM orders LIMIT 1000",
		},
		{
			"existing limit untouched",
			"SELECT * FROM orders LIMIT 5",
			"SELECT * FROM orders LIMIT 5",
		},
		{
			"existing lowercase limit untouched",
			"select * from orders limit 20",
			"select * from orders limit 20",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gate.EnforceRowLimit(tt.statement, 1000); got != tt.want {
				t.Errorf("EnforceRowLimit() = %q, want %q", got, tt.want)
			}
		})
	}
}
