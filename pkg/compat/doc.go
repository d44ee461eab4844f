// Package compat evaluates runtime-engine constraints such as the
// "engines.node" field of a package manifest against the runtime the
// caller is using.
//
// The evaluation is advisory: callers warn on incompatibility and keep
// going. Terms the evaluator cannot read are treated as satisfied and
// reported through [Constraint.Warnings] instead of failing.
//
// # Grammar
//
// A constraint is one or more whitespace-separated terms that must all
// hold. Alternatives are separated by "||". Each term is an optional
// operator followed by a version:
//
//	=1.2.3  1.2.3   exact (missing components are zero-filled)
//	>=14  >14  <=16  <16
//	~1.2.3          >=1.2.3 <1.3.0   (~1 means <2.0.0)
//	^1.2.3          >=1.2.3 <2.0.0   (^0.2.3 means <0.3.0, ^0.0.3 means <0.0.4)
//	1.2.3 - 2.0.0   >=1.2.3 <=2.0.0
//	*  x  ""        any version
//
// A version with an "x" or "*" component, such as "14.x", matches the
// whole range it leaves open.
package compat
