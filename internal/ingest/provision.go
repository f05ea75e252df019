package ingest

import (
	"context"
	"fmt"
)

// Provisioner creates destination tables matching inferred schemas.
// The storage type per column is chosen by the store's fixed mapping;
// no secondary indexes, foreign keys, or nullability constraints beyond
// the storage defaults are added.
type Provisioner struct {
	Store Store
}

// Provision creates d's destination table from schema. Callers must
// consult the guard first: an existing table surfaces as
// *TableAlreadyExistsError. The DDL commits on its own, outside the
// load transaction.
func (p *Provisioner) Provision(ctx context.Context, d Dataset, schema Schema) error {
	if len(schema) == 0 {
		return fmt.Errorf("provision %s: empty schema", d.Table)
	}
	return p.Store.CreateTable(ctx, d.Table, schema)
}
