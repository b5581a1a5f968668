// Package testutil provides lifecycle helpers for test components such as
// the in-memory Redis server and the mock API backend.
//
//	func TestLogin(t *testing.T) {
//	    api := mockapi.NewComponent(mockapi.Options{})
//	    testutil.T(t).Setup(api)
//	    // api is stopped when the test ends
//	}
package testutil
