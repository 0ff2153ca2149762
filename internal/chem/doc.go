// Package chem provides the physical constants behind the response models.
//
// It covers three concerns:
//
//   - Periodic table data: atomic weights and elemental densities, used to
//     turn a chemical formula into per-element mass fractions.
//   - Formula parsing: "CsI", "Gd3Al2Ga3O12" or {"H": 2, "O": 1} style
//     composition maps.
//   - Attenuation lookup: energy-dependent mass attenuation and mass
//     energy-absorption coefficients interpolated in log-log space from a
//     reference [Table], and conversion to linear coefficients in 1/mm.
//
// The reference table itself is injected (see [LoadTable]); the package does
// not bundle the NIST dataset.
package chem
