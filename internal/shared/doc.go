// Package shared holds code used across packages that belongs to no single
// layer. Today that is only the testutil subpackage:
//
//	- BufferedSlogHandler and NewTestLogger capture slog records for assertions
//	- fixtures build Product/Metric/Value tables and CSV uploads
//
// Example usage:
//
//	func TestUpload(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    svc := services.NewStatementService(store, registry, 0, logger)
//
//	    _, err := svc.Upload(ctx, "statement.csv", strings.NewReader(testutil.SampleCSV()))
//	    require.NoError(t, err)
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "dataset stored")
//	}
package shared
