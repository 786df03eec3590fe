package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func result(index int, status JobStatus) JobResult {
	return JobResult{Spec: JobSpec{Index: index}, Status: status}
}

func TestAggregateAllSucceeded(t *testing.T) {
	report, err := Aggregate([]JobResult{
		result(0, StatusSucceeded),
		result(1, StatusSucceeded),
	})
	require.NoError(t, err)
	require.Equal(t, RunSucceeded, report.Status)
	require.Len(t, report.Jobs, 2)
}

func TestAggregateSingleFailureForcesFailed(t *testing.T) {
	testCases := []struct {
		name string
		bad  JobStatus
	}{
		{name: "one failed", bad: StatusFailed},
		{name: "one errored", bad: StatusErrored},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			report, err := Aggregate([]JobResult{
				result(0, StatusSucceeded),
				result(1, testCase.bad),
				result(2, StatusSucceeded),
			})
			require.NoError(t, err)
			require.Equal(t, RunFailed, report.Status)
		})
	}
}

func TestAggregatePreservesOrder(t *testing.T) {
	report, err := Aggregate([]JobResult{
		result(0, StatusSucceeded),
		result(1, StatusFailed),
		result(2, StatusSucceeded),
	})
	require.NoError(t, err)
	for i, job := range report.Jobs {
		require.Equal(t, i, job.Spec.Index)
	}
}

func TestAggregateEmptyIsError(t *testing.T) {
	_, err := Aggregate(nil)
	require.Error(t, err)
	require.True(t, IsConfigurationError(err))
}
