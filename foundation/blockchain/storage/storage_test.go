package storage_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/nexuschain/chaincore/foundation/blockchain/storage"
	"github.com/nexuschain/chaincore/foundation/blockchain/storage/leveldb"
	"github.com/nexuschain/chaincore/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Stores(t *testing.T) {
	type table struct {
		name string
		open func(t *testing.T) storage.KeyValueStore
	}

	tt := []table{
		{
			name: "memory",
			open: func(t *testing.T) storage.KeyValueStore { return memory.New() },
		},
		{
			name: "leveldb",
			open: func(t *testing.T) storage.KeyValueStore {
				db, err := leveldb.Open(filepath.Join(t.TempDir(), "test.db"), leveldb.Options{})
				if err != nil {
					t.Fatalf("\t%s\tShould be able to open leveldb: %v", failed, err)
				}
				return db
			},
		},
	}

	t.Log("Given the need to persist key/value pairs.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				db := tst.open(t)
				defer db.Close()

				t.Logf("\tTest %d:\tWhen using the %s backend.", testID, tst.name)
				{
					if _, err := db.Get([]byte("a")); !errors.Is(err, storage.ErrNotFound) {
						t.Fatalf("\t%s\tTest %d:\tShould report a missing key: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould report a missing key.", success, testID)

					b := db.NewBatch()
					b.Put([]byte("p.2"), []byte("two"))
					b.Put([]byte("p.1"), []byte("one"))
					b.Put([]byte("q.1"), []byte("other"))
					b.Delete([]byte("p.3"))
					if b.Len() == 0 {
						t.Fatalf("\t%s\tTest %d:\tShould count the batched writes.", failed, testID)
					}
					if exists, _ := db.Has([]byte("p.1")); exists {
						t.Fatalf("\t%s\tTest %d:\tShould not apply the batch before Write.", failed, testID)
					}
					if err := b.Write(); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to write the batch: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould apply the batch on Write.", success, testID)

					iter := db.NewIterator([]byte("p."))
					var keys []string
					for iter.Next() {
						keys = append(keys, string(iter.Key()))
					}
					iter.Release()
					if err := iter.Error(); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould iterate without error: %v", failed, testID, err)
					}
					if len(keys) != 2 || keys[0] != "p.1" || keys[1] != "p.2" {
						t.Fatalf("\t%s\tTest %d:\tShould walk the prefix in order: %v", failed, testID, keys)
					}
					t.Logf("\t%s\tTest %d:\tShould walk the prefix in order.", success, testID)

					tbl := storage.NewTable(db, "chain.side.")
					if err := tbl.Put([]byte("p.1"), []byte("side")); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to write through the table: %v", failed, testID, err)
					}
					v, err := db.Get([]byte("p.1"))
					if err != nil || string(v) != "one" {
						t.Fatalf("\t%s\tTest %d:\tShould keep the table apart from the root keys: %q %v", failed, testID, v, err)
					}
					v, err = db.Get([]byte("chain.side.p.1"))
					if err != nil || string(v) != "side" {
						t.Fatalf("\t%s\tTest %d:\tShould prefix the table keys: %q %v", failed, testID, v, err)
					}

					iter = tbl.NewIterator([]byte("p."))
					iter.Next()
					if string(iter.Key()) != "p.1" {
						t.Fatalf("\t%s\tTest %d:\tShould trim the table prefix: %q", failed, testID, iter.Key())
					}
					iter.Release()
					t.Logf("\t%s\tTest %d:\tShould scope the table keys.", success, testID)

					if err := db.Delete([]byte("p.1")); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to delete: %v", failed, testID, err)
					}
					if exists, _ := db.Has([]byte("p.1")); exists {
						t.Fatalf("\t%s\tTest %d:\tShould remove the key.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould remove the key.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}
