// Package models contains the GORM persistence models and their conversions
// to and from domain entities. Models never leak outside the persistence
// layer; repositories convert at the boundary.
package models
