package mempool_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestCRUD(t *testing.T) {
	type table struct {
		name    string
		payload []string
		delete  int
		order   []string
	}

	tt := []table{
		{
			name:    "basic",
			payload: []string{"alice pays bob", "bob pays carol", "carol pays dave"},
			delete:  1,
			order:   []string{"alice pays bob", "carol pays dave"},
		},
		{
			name:    "head",
			payload: []string{"one", "two"},
			delete:  0,
			order:   []string{"two"},
		},
	}

	t.Log("Given the need to validate mempool api.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a set of payloads.", testID)
			{
				f := func(t *testing.T) {
					mp := mempool.New()

					var entries []mempool.Entry
					for _, data := range tst.payload {
						entries = append(entries, mp.Add(data, time.Now()))
					}

					if mp.Count() != len(tst.payload) {
						t.Fatalf("\t%s\tTest %d:\tShould be able to add payloads, got %d.", failed, testID, mp.Count())
					}
					t.Logf("\t%s\tTest %d:\tShould be able to add payloads.", success, testID)

					if entries[0].ID == entries[1].ID {
						t.Fatalf("\t%s\tTest %d:\tShould get unique ids.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get unique ids.", success, testID)

					next, ok := mp.Next()
					if !ok || next.Data != tst.payload[0] {
						t.Fatalf("\t%s\tTest %d:\tShould get the oldest payload first.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the oldest payload first.", success, testID)

					mp.Delete(entries[tst.delete].ID)
					mp.Delete("unknown")

					got := mp.Copy()
					if len(got) != len(tst.order) {
						t.Fatalf("\t%s\tTest %d:\tShould have %d payloads, got %d.", failed, testID, len(tst.order), len(got))
					}
					for i := range got {
						if got[i].Data != tst.order[i] {
							t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, got[i].Data)
							t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.order[i])
							t.Fatalf("\t%s\tTest %d:\tShould keep the arrival order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould keep the arrival order after a delete.", success, testID)

					mp.Truncate()
					if _, ok := mp.Next(); ok || mp.Count() != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould be empty after truncate.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be empty after truncate.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}
