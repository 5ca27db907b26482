package enums

import "fmt"

// SteelGrade represents the canonical structural steel grades in the catalog.
type SteelGrade string

const (
	SteelGradeS235JR SteelGrade = "s235jr"
	SteelGradeS275JR SteelGrade = "s275jr"
	SteelGradeS355J2 SteelGrade = "s355j2"
	SteelGradeS355JR SteelGrade = "s355jr"
	SteelGrade304    SteelGrade = "aisi304"
	SteelGrade316L   SteelGrade = "aisi316l"
)

var validSteelGrades = []SteelGrade{
	SteelGradeS235JR,
	SteelGradeS275JR,
	SteelGradeS355J2,
	SteelGradeS355JR,
	SteelGrade304,
	SteelGrade316L,
}

// String implements fmt.Stringer.
func (g SteelGrade) String() string {
	return string(g)
}

// IsValid reports whether the value is a known SteelGrade.
func (g SteelGrade) IsValid() bool {
	for _, candidate := range validSteelGrades {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseSteelGrade converts raw input into a SteelGrade.
func ParseSteelGrade(value string) (SteelGrade, error) {
	for _, candidate := range validSteelGrades {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid steel grade %q", value)
}

// ProfileCategory represents the canonical structural profile families.
type ProfileCategory string

const (
	ProfileCategoryIPE        ProfileCategory = "ipe"
	ProfileCategoryHEA        ProfileCategory = "hea"
	ProfileCategoryHEB        ProfileCategory = "heb"
	ProfileCategoryUPN        ProfileCategory = "upn"
	ProfileCategoryAngle      ProfileCategory = "angle"
	ProfileCategoryFlatBar    ProfileCategory = "flat_bar"
	ProfileCategoryRoundBar   ProfileCategory = "round_bar"
	ProfileCategorySquareTube ProfileCategory = "square_tube"
	ProfileCategoryRectTube   ProfileCategory = "rect_tube"
	ProfileCategorySheet      ProfileCategory = "sheet"
)

var validProfileCategories = []ProfileCategory{
	ProfileCategoryIPE,
	ProfileCategoryHEA,
	ProfileCategoryHEB,
	ProfileCategoryUPN,
	ProfileCategoryAngle,
	ProfileCategoryFlatBar,
	ProfileCategoryRoundBar,
	ProfileCategorySquareTube,
	ProfileCategoryRectTube,
	ProfileCategorySheet,
}

// String implements fmt.Stringer.
func (c ProfileCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProfileCategory.
func (c ProfileCategory) IsValid() bool {
	for _, candidate := range validProfileCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProfileCategory converts raw input into a ProfileCategory.
func ParseProfileCategory(value string) (ProfileCategory, error) {
	for _, candidate := range validProfileCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid profile category %q", value)
}
