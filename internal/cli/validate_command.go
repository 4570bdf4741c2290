package cli

import (
	"fmt"
	"strings"

	"scenesync/internal/batch"
)

// runValidate performs the classification-only pass: downloads are
// disabled and nothing on disk is mutated, so the run is a pure report of
// which scenes are locally complete.
func runValidate(args []string) int {
	f := newSyncFlags("validate")
	if code, ok := f.parse(args); !ok {
		return code
	}
	return runReconcile(f, true)
}

func printValidationSummary(report batch.RunReport) {
	var complete, incomplete int
	var incompleteIDs []string
	for _, w := range report.Waves {
		complete += w.Skipped
		incomplete += len(w.FailedDownloads) + len(w.FailedProcessing)
		incomplete += w.Succeeded // succeeded in validate mode means "would need processing"
		incompleteIDs = append(incompleteIDs, w.FailedDownloads...)
		incompleteIDs = append(incompleteIDs, w.FailedProcessing...)
	}

	fmt.Println("validation summary")
	fmt.Printf("  complete    %d\n", complete)
	fmt.Printf("  incomplete  %d\n", incomplete)
	if len(incompleteIDs) > 0 {
		if len(incompleteIDs) > 10 {
			incompleteIDs = append(incompleteIDs[:10], fmt.Sprintf("+%d more", len(incompleteIDs)-10))
		}
		fmt.Printf("  needs attention: %s\n", strings.Join(incompleteIDs, ", "))
	}
	if report.Interrupted {
		fmt.Println("  interrupted before all scenes were checked")
	}
}
