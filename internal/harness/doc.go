// Package harness runs API-to-database consistency checks.
//
// A Session holds the one bearer token and the one pinned database
// connection of a run. Each check issues a single HTTP call and compares the
// response with what the database says:
//
//   - read: the GET body must equal a column value from the database
//   - create: the POST must return 201 and a configured literal body
//   - update: the PUT to endpoint/<row_id> must echo the new field value
//     and leave exactly one matching row
//   - delete: the DELETE to endpoint/<row_id> must return 204 and remove
//     exactly one row
//
// # Suite Format
//
// Suites are YAML files:
//
//	name: items
//	description: "Items API agrees with the items table"
//	target:
//	  base_url: http://localhost:8080
//	  endpoint: /items
//	preconditions:
//	  - name: seed
//	    statements:
//	      - "INSERT INTO items (id, value) VALUES (1, 'hello')"
//	checks:
//	  - name: read-items
//	    kind: read
//	    table: items
//	    column: value
//	  - name: delete-item
//	    kind: delete
//	    table: items
//	    id_column: id
//	    row_id: "1"
//	    depends_on: [seed]
//
// Literals omitted from a check take the defaults of its kind (see
// CheckSpec.WithDefaults).
//
// # Errors
//
// Checks fail with an *AssertionError when the API and database disagree.
// Problems reaching either side are reported as *SetupError, *QueryError or
// *TransportError and mark the check as errored rather than failed, so a
// broken connection never reads as a data mismatch.
//
// # Determinism
//
// Trace events are ordered by a logical sequence and record paths rather
// than full URLs, so a run against the same state yields the same trace and
// can be compared against a golden snapshot.
package harness
