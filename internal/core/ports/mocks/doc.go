// Package mocks provides test doubles for ports interfaces.
//
// These mocks are simple, thread-safe, in-memory implementations
// suitable for unit testing. Each mock provides:
//
//   - Default behavior that mirrors the uniqueness rules of the SQL schema
//   - Callback functions (xxxFn) for customizing behavior per test
//   - Helper methods for setting state directly
//
// # Usage Example
//
//	func TestMyService(t *testing.T) {
//		store := mocks.NewStore()
//		store.AddEmployee(domain.Employee{EmployeeID: "RD-001", FullName: "Ece"})
//
//		svc := NewService(store)
//		// ... test service behavior
//	}
//
// # Available Mocks
//
//   - SettingsStore: implements ports.SettingsStore
//   - Store: implements the raw message, event, identity, employee,
//     template, notification log and locker ports, with WithTx rolling
//     back identity bindings that fail midway
package mocks
