package task_test

import (
	"errors"
	"testing"

	"github.com/nexuschain/chaincore/foundation/blockchain/changeset"
	"github.com/nexuschain/chaincore/foundation/blockchain/database"
	"github.com/nexuschain/chaincore/foundation/blockchain/storage/memory"
	"github.com/nexuschain/chaincore/foundation/blockchain/task"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_IsDue(t *testing.T) {
	type table struct {
		name   string
		task   task.Task
		height uint64
		now    uint64
		due    bool
	}

	tt := []table{
		{name: "delay-pending", task: task.Task{Mode: task.ModeBlocks, Frequency: 5, Delay: 3, CreatedHeight: 10}, height: 12, due: false},
		{name: "delay-reached", task: task.Task{Mode: task.ModeBlocks, Frequency: 5, Delay: 3, CreatedHeight: 10}, height: 13, due: true},
		{name: "frequency-pending", task: task.Task{Mode: task.ModeBlocks, Frequency: 5, HasRun: true, LastRun: 20}, height: 24, due: false},
		{name: "frequency-reached", task: task.Task{Mode: task.ModeBlocks, Frequency: 5, HasRun: true, LastRun: 20}, height: 25, due: true},
		{name: "seconds", task: task.Task{Mode: task.ModeSeconds, Frequency: 60, HasRun: true, LastRun: 1000}, height: 99, now: 1059, due: false},
		{name: "seconds-reached", task: task.Task{Mode: task.ModeSeconds, Frequency: 60, HasRun: true, LastRun: 1000}, height: 99, now: 1060, due: true},
		{name: "always", task: task.Task{Mode: task.ModeAlways, HasRun: true, LastRun: 7}, height: 7, due: true},
		{name: "always-ignores-delay", task: task.Task{Mode: task.ModeAlways, Delay: 5, CreatedHeight: 10}, height: 10, due: true},
		{name: "always-before-delay", task: task.Task{Mode: task.ModeAlways, Delay: 5, CreatedHeight: 10}, height: 14, due: true},
	}

	t.Log("Given the need to decide when a task runs.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen checking %s.", testID, tst.name)
				{
					if got := tst.task.IsDue(tst.height, tst.now); got != tst.due {
						t.Fatalf("\t%s\tTest %d:\tShould report due=%t: got %t", failed, testID, tst.due, got)
					}
					t.Logf("\t%s\tTest %d:\tShould report due=%t.", success, testID, tst.due)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Scheduler(t *testing.T) {
	t.Log("Given the need to run tasks at the start of a block.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen three tasks are due.", testID)
		{
			cs := changeset.New(memory.New())
			store := task.NewStore(cs)
			owner := database.SystemAddress("owner")

			for _, m := range []string{"A", "B", "C"} {
				if _, err := store.Add(task.Task{Owner: owner, Contract: "demo", Method: m, Mode: task.ModeBlocks, Frequency: 1, CreatedHeight: 1}); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to add a task: %v", failed, testID, err)
				}
			}

			var order []string
			run := func(tk task.Task) (bool, error) {
				order = append(order, tk.Method)
				switch tk.Method {
				case "B":
					return false, errors.New("fault")
				case "C":
					return true, nil
				}
				return false, nil
			}

			sched := task.NewScheduler(store, nil)
			outcomes, err := sched.Process(2, 0, run)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to process: %v", failed, testID, err)
			}

			if len(order) != 3 || order[0] != "A" || order[1] != "B" || order[2] != "C" {
				t.Fatalf("\t%s\tTest %d:\tShould run in creation order: %v", failed, testID, order)
			}
			t.Logf("\t%s\tTest %d:\tShould run in creation order.", success, testID)

			if !outcomes[1].Crashed || !outcomes[2].Halted {
				t.Fatalf("\t%s\tTest %d:\tShould report crashed and halted tasks: %+v", failed, testID, outcomes)
			}
			t.Logf("\t%s\tTest %d:\tShould report crashed and halted tasks.", success, testID)

			list, _ := store.List()
			if len(list) != 1 || list[0].Method != "A" || !list[0].HasRun || list[0].LastRun != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould keep only the continuing task: %+v", failed, testID, list)
			}
			t.Logf("\t%s\tTest %d:\tShould keep only the continuing task.", success, testID)

			order = nil
			sched.Process(2, 0, run)
			if len(order) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould not run again before the frequency: %v", failed, testID, order)
			}
			t.Logf("\t%s\tTest %d:\tShould not run again before the frequency.", success, testID)

			next, _ := store.Add(task.Task{Owner: owner, Contract: "demo", Method: "D", Mode: task.ModeBlocks, Frequency: 1})
			if next.ID != 4 {
				t.Fatalf("\t%s\tTest %d:\tShould never reuse an id: got %d", failed, testID, next.ID)
			}
			t.Logf("\t%s\tTest %d:\tShould never reuse an id.", success, testID)
		}
	}
}
