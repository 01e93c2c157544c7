// Package domain turns a METAR weather report into a runway decision.
//
// # Data Source
//
// Reports come from the VATSIM METAR service (https://metar.vatsim.net), which
// serves one report per line without the leading "METAR" marker. Airport rules
// are static configuration loaded once at startup. Nothing in this package
// performs I/O; [ParseMETAR] and [Decide] are pure and may be called
// concurrently.
//
// # METAR Conventions
//
// Report marker:
//
//	[METAR|SPECI] [COR] <station> <ddhhmm>Z [AUTO|COR]
//	The station and time group are mandatory. The day of month is resolved
//	against the current UTC month; a day later than today means last month.
//
// Wind:
//
//	dddssKT, dddssGggKT, VRBssKT     speed in knots
//	MPS and KMH units are converted to knots and rounded.
//	/////KT means the wind was not measured. The group is present but the
//	observation carries no wind, which the engine treats as calm.
//	A following dddVddd group gives the clockwise arc the wind varies across.
//
// Visibility:
//
//	CAVOK, 4-digit meters (9999 = 10 km or more), or statute miles
//	("3SM", "1/2SM", "1 1/2SM", "M1/4SM") converted to meters.
//
// Runway visual range:
//
//	R<rwy>/[P|M]vvvv[V[P|M]vvvv][FT][U|D|N]
//	The lowest reported value is kept; feet are converted to meters.
//
// Clouds:
//
//	FEW, SCT, BKN, OVC and VV with a 3-digit base in hundreds of feet.
//	An unknown base ("BKN///", "VV///") on a ceiling-forming layer is read as
//	0 ft. Unknown bases on FEW and SCT are dropped.
//	NSC, SKC, CLR and NCD mean no cloud groups.
//
// Temperature/dewpoint:
//
//	TT/DD in whole degrees Celsius, "M" prefix for negative values.
//
// Pressure:
//
//	Qpppp in hPa, or Apppp in hundredths of inHg converted to hPa.
//
// Trend and remark sections (RMK, TEMPO, BECMG, NOSIG) end the body.
//
// # Decision Rules
//
// [Decide] evaluates every override rule of the airport in declared order and
// returns MANUAL with the name of each rule that fired. Otherwise the ordered
// priority rules are tried, then all runways are ranked by worst-case
// crosswind ascending, headwind descending and designator ascending. A
// selected runway that exceeds the airport's crosswind or tailwind limit turns
// the decision into MANUAL.
//
// Wind components follow the usual decomposition with Δ the signed angle from
// runway heading to wind direction, normalized into [-180, 180]:
//
//	crosswind = |speed · sin Δ|
//	headwind  =  speed · cos Δ    (negative is a tailwind)
package domain
