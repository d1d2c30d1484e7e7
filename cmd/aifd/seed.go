package main

import (
	"fmt"

	"github.com/goliatone/go-aif/aims/caerev"
	"github.com/goliatone/go-aif/configstore"
)

type seedCmd struct {
	DB string `arg:"" help:"Path of the sqlite database to create or update."`
}

func (c *seedCmd) Run(a *app) error {
	db, err := configstore.OpenSQLite(a.ctx, c.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	docs := caerev.Documents()
	for _, doc := range docs {
		if err := db.Put(a.ctx, doc.Kind, doc.Name, doc.Data); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(a.out, "seeded %d documents into %s\n", len(docs), c.DB)
	return err
}
