// Package ir provides the canonical graph intermediate representation for
// pipeweld: nodes, edges, and the closed operation-kind enumeration.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This ensures IR remains the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - The Kind enumeration is closed. Four independent consumers (three
//     lowerers plus the interpreter) dispatch on it exhaustively; an
//     unrecognized kind is KindUnknown, a documented passthrough, never a
//     silent mis-lowering.
//   - Filter and derive expressions are opaque text. They are escaped per
//     backend dialect but never parsed, translated, or type-checked.
//   - A graph is an immutable-per-request value. Rewrites produce new
//     payloads for surviving nodes; nothing mutates a node in place and
//     retains it elsewhere.
package ir
