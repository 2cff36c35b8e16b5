package logger_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nexuschain/chaincore/foundation/logger"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_New(t *testing.T) {
	t.Log("Given the need to log structured lines for a service.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen writing a line to a file.", testID)
		{
			path := filepath.Join(t.TempDir(), "node.log")

			log, err := logger.New("NODE", path)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the logger: %v", failed, testID, err)
			}
			log.Infow("startup", "status", "ok")
			log.Sync()

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to read the log: %v", failed, testID, err)
			}

			var line map[string]any
			if err := json.Unmarshal(data, &line); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould write a json line: %v", failed, testID, err)
			}
			if line["service"] != "NODE" || line["msg"] != "startup" || line["status"] != "ok" {
				t.Fatalf("\t%s\tTest %d:\tShould carry the service and the fields: %v", failed, testID, line)
			}
			t.Logf("\t%s\tTest %d:\tShould carry the service and the fields.", success, testID)
		}
	}
}
