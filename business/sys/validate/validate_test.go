package validate_test

import (
	"testing"

	"github.com/nexuschain/chaincore/business/sys/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type query struct {
	Chain   string `json:"chain" validate:"required"`
	Address string `json:"address" validate:"address"`
	Hash    string `json:"hash" validate:"omitempty,hash"`
}

func Test_Check(t *testing.T) {
	const addr = "P0000000000000000000000000000000000000001"
	const hash = "0x0000000000000000000000000000000000000000000000000000000000000001"

	type table struct {
		name   string
		val    query
		fields []string
	}

	tt := []table{
		{"valid", query{Chain: "main", Address: addr}, nil},
		{"valid-hash", query{Chain: "main", Address: addr, Hash: hash}, nil},
		{"missing-chain", query{Address: addr}, []string{"chain"}},
		{"bad-address", query{Chain: "main", Address: "bill"}, []string{"address"}},
		{"bad-hash", query{Chain: "main", Address: addr, Hash: "0x12"}, []string{"hash"}},
	}

	t.Log("Given the need to validate request models.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen checking a %s model.", testID, tst.name)
				{
					err := validate.Check(tst.val)
					if len(tst.fields) == 0 {
						if err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould pass validation: %v", failed, testID, err)
						}
						t.Logf("\t%s\tTest %d:\tShould pass validation.", success, testID)
						return
					}

					if !validate.IsFieldErrors(err) {
						t.Fatalf("\t%s\tTest %d:\tShould return field errors: %v", failed, testID, err)
					}
					fields := validate.GetFieldErrors(err).Fields()
					for _, name := range tst.fields {
						if fields[name] == "" {
							t.Fatalf("\t%s\tTest %d:\tShould report the %s field: %v", failed, testID, name, fields)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould report the failing fields.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}
