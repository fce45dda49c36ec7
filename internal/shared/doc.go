// Package shared holds helpers used across packages that belong to no single
// layer.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler, a slog.Handler that captures records for assertions
//   - RetailFixture, a builder for transaction workbooks (xlsx and csv) with
//     canned scenarios such as RetailSample and FewCustomers
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    data := testutil.RetailSample().XLSX(t)
//	    // run code under test with logger and data
//	    testutil.AssertNoErrors(t, logs)
//	}
package shared
