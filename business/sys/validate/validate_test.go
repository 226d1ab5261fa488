package validate_test

import (
	"strings"
	"testing"

	"github.com/ardanlabs/ledger/business/sys/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type proposal struct {
	ID       uint64 `json:"id"`
	PrevHash string `json:"previous_hash" validate:"required,hash"`
	Data     string `json:"data" validate:"required"`
}

func Test_Check(t *testing.T) {
	goodHash := strings.Repeat("0a", 32)

	type table struct {
		name   string
		val    proposal
		fields []string
	}

	tt := []table{
		{name: "valid", val: proposal{PrevHash: goodHash, Data: "x"}},
		{name: "missing", val: proposal{}, fields: []string{"previous_hash", "data"}},
		{name: "upper", val: proposal{PrevHash: strings.ToUpper(goodHash), Data: "x"}, fields: []string{"previous_hash"}},
		{name: "prefix", val: proposal{PrevHash: "0x" + goodHash[2:], Data: "x"}, fields: []string{"previous_hash"}},
	}

	t.Log("Given the need to validate request models.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				err := validate.Check(tst.val)

				if len(tst.fields) == 0 {
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to validate the model: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to validate the model.", success, testID)
					return
				}

				fe := validate.GetFieldErrors(err)
				if fe == nil {
					t.Fatalf("\t%s\tTest %d:\tShould get field errors: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould get field errors.", success, testID)

				fields := fe.Fields()
				for _, name := range tst.fields {
					if _, exists := fields[name]; !exists {
						t.Fatalf("\t%s\tTest %d:\tShould have an error for field %q: %v", failed, testID, name, fields)
					}
				}
				t.Logf("\t%s\tTest %d:\tShould have an error for each bad field.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}
