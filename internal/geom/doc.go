// Package geom provides the 2D math kernel used by the sandbox.
//
// Everything in this package is a pure value or a pure function:
//
//   - [Vec2]: immutable 2D vector
//   - [Rot], [Transform]: rotation and rigid transform
//   - [AABB]: axis-aligned bounding box for broad-phase pruning
//   - [Circle], [Polygon]: collision shapes with mass properties
//   - [Collide]: narrow-phase tests producing a [Manifold]
//
// Shapes are expressed in body-local coordinates. A [Transform] places
// them in the world.
//
// # Conventions
//
// Polygons are convex and wound counter-clockwise. Manifold normals
// always point from shape A towards shape B. Normalizing a zero-length
// vector yields the zero vector instead of NaN.
package geom
