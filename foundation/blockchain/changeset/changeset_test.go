package changeset_test

import (
	"errors"
	"testing"

	"github.com/nexuschain/chaincore/foundation/blockchain/changeset"
	"github.com/nexuschain/chaincore/foundation/blockchain/storage"
	"github.com/nexuschain/chaincore/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_ReadYourWrites(t *testing.T) {
	t.Log("Given the need to read buffered writes before they are applied.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a put and a delete.", testID)
		{
			base := memory.New()
			base.Put([]byte("a"), []byte("base"))
			base.Put([]byte("b"), []byte("base"))

			cs := changeset.New(base)
			cs.Put([]byte("a"), []byte("new"))
			cs.Delete([]byte("b"))

			v, err := cs.Get([]byte("a"))
			if err != nil || string(v) != "new" {
				t.Fatalf("\t%s\tTest %d:\tShould see the buffered value: got %q, %v", failed, testID, v, err)
			}
			t.Logf("\t%s\tTest %d:\tShould see the buffered value.", success, testID)

			if _, err := cs.Get([]byte("b")); !errors.Is(err, storage.ErrNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould see the tombstone as not found: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould see the tombstone as not found.", success, testID)

			has, _ := cs.Has([]byte("b"))
			if has {
				t.Fatalf("\t%s\tTest %d:\tShould not report the deleted key.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not report the deleted key.", success, testID)

			v, _ = base.Get([]byte("a"))
			if string(v) != "base" {
				t.Fatalf("\t%s\tTest %d:\tShould not touch the base store before Execute: got %q", failed, testID, v)
			}
			t.Logf("\t%s\tTest %d:\tShould not touch the base store before Execute.", success, testID)
		}
	}
}

func Test_Truncate(t *testing.T) {
	t.Log("Given the need to roll back to a checkpoint.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen discarding a nested set of writes.", testID)
		{
			base := memory.New()
			cs := changeset.New(base)

			cs.Put([]byte("k"), []byte("1"))
			cp := cs.Checkpoint()
			before := cs.Version()

			cs.Put([]byte("k"), []byte("2"))
			cs.Put([]byte("x"), []byte("3"))

			if err := cs.Truncate(cp); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to truncate: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to truncate.", success, testID)

			v, _ := cs.Get([]byte("k"))
			if string(v) != "1" {
				t.Fatalf("\t%s\tTest %d:\tShould restore the earlier value: got %q", failed, testID, v)
			}
			t.Logf("\t%s\tTest %d:\tShould restore the earlier value.", success, testID)

			if has, _ := cs.Has([]byte("x")); has {
				t.Fatalf("\t%s\tTest %d:\tShould drop keys written after the checkpoint.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould drop keys written after the checkpoint.", success, testID)

			if cs.Count() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould have one op left: got %d", failed, testID, cs.Count())
			}
			t.Logf("\t%s\tTest %d:\tShould have one op left.", success, testID)

			if cs.Version() <= before {
				t.Fatalf("\t%s\tTest %d:\tShould never move the version backwards.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould never move the version backwards.", success, testID)

			if err := cs.Truncate(5); !errors.Is(err, changeset.ErrCheckpoint) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a checkpoint past the end: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a checkpoint past the end.", success, testID)
		}
	}
}

func Test_Execute(t *testing.T) {
	t.Log("Given the need to apply buffered writes atomically.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen executing twice.", testID)
		{
			base := memory.New()
			base.Put([]byte("gone"), []byte("v"))

			cs := changeset.New(base)
			cs.Put([]byte("k"), []byte("1"))
			cs.Put([]byte("k"), []byte("2"))
			cs.Delete([]byte("gone"))

			if err := cs.Execute(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to execute: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to execute.", success, testID)

			v, _ := base.Get([]byte("k"))
			if string(v) != "2" {
				t.Fatalf("\t%s\tTest %d:\tShould apply writes in order: got %q", failed, testID, v)
			}
			t.Logf("\t%s\tTest %d:\tShould apply writes in order.", success, testID)

			if has, _ := base.Has([]byte("gone")); has {
				t.Fatalf("\t%s\tTest %d:\tShould apply the tombstone.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould apply the tombstone.", success, testID)

			base.Put([]byte("k"), []byte("external"))
			if err := cs.Execute(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould treat a second execute as a no-op: %v", failed, testID, err)
			}

			v, _ = base.Get([]byte("k"))
			if string(v) != "external" {
				t.Fatalf("\t%s\tTest %d:\tShould not apply any op twice: got %q", failed, testID, v)
			}
			t.Logf("\t%s\tTest %d:\tShould not apply any op twice.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the base store rejects the write.", testID)
		{
			base := memory.New()
			base.FailWrites = true

			cs := changeset.New(base)
			cs.Put([]byte("a"), []byte("1"))
			cs.Put([]byte("b"), []byte("2"))

			if err := cs.Execute(); !errors.Is(err, changeset.ErrApply) {
				t.Fatalf("\t%s\tTest %d:\tShould report an apply error: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report an apply error.", success, testID)

			if base.Len() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the store untouched: %d keys", failed, testID, base.Len())
			}
			t.Logf("\t%s\tTest %d:\tShould leave the store untouched.", success, testID)

			if cs.Count() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould keep the buffer for a retry: got %d", failed, testID, cs.Count())
			}
			t.Logf("\t%s\tTest %d:\tShould keep the buffer for a retry.", success, testID)
		}
	}
}

func Test_Table(t *testing.T) {
	t.Log("Given the need to share one store between chains.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen writing through two tables.", testID)
		{
			base := memory.New()
			main := storage.NewTable(base, "chain.main.")
			side := storage.NewTable(base, "chain.side.")

			changeset.New(main).Put([]byte("k"), []byte("ignored"))

			cs := changeset.New(main)
			cs.Put([]byte("k"), []byte("main"))
			if err := cs.Execute(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to execute: %v", failed, testID, err)
			}

			if _, err := side.Get([]byte("k")); !errors.Is(err, storage.ErrNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould keep tables apart: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould keep tables apart.", success, testID)

			v, _ := base.Get([]byte("chain.main.k"))
			if string(v) != "main" {
				t.Fatalf("\t%s\tTest %d:\tShould prefix the key: got %q", failed, testID, v)
			}
			t.Logf("\t%s\tTest %d:\tShould prefix the key.", success, testID)

			iter := main.NewIterator(nil)
			defer iter.Release()
			if !iter.Next() || string(iter.Key()) != "k" {
				t.Fatalf("\t%s\tTest %d:\tShould iterate with the prefix removed.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould iterate with the prefix removed.", success, testID)
		}
	}
}
