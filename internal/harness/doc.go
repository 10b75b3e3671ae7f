// Package harness runs conformance scenarios for the query dialects.
//
// A scenario pairs one query definition with the exact strings each
// dialect must produce, and optionally a canned server response the query
// is enumerated against.
//
// # Scenario Format
//
//	name: push_search
//	description: "contains routes to search; paging maps to page index"
//	query:
//	  endpoint: workouts
//	  where:
//	    - {field: name, op: contains, value: push}
//	  skip: 20
//	  take: 10
//	  include:
//	    - [weekPlans, weekPlanSets]
//	expect:
//	  rest:
//	    query: "search=push&pageIndex=2&pageSize=10"
//	  odata:
//	    query: "$filter=contains(name,%20'push')&$skip=20&$top=10"
//	  include: "weekplans.weekplansets"
//	fetch:
//	  dialect: odata
//	  body: '{"value": [{"id": 1}], "@odata.count": 1}'
//	  expect:
//	    items: 1
//	    total: 1
//
// A dialect expectation may instead name an error substring (error:) or
// the warnings the compiler must report (warnings:). The query may live in
// a separate file referenced by query_file, resolved relative to the
// scenario.
//
// # Deterministic Testing
//
// Fetch steps run against an httptest server on a random port with a
// fixed request-ID generator, a testutil.StepClock and an in-memory fetch
// log. Traces record only the query string, so golden snapshots are
// identical across runs.
package harness
