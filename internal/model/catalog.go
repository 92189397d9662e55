package model

// TestKey names a standard exam, lab or x-ray item on the Form Slip.
type TestKey string

const (
	TestPhysicalExam  TestKey = "exam_physical"
	TestVisualAcuity  TestKey = "exam_visual_acuity"
	TestHeightWeight  TestKey = "exam_height_weight"
	TestCBCPlatelet   TestKey = "lab_cbc_platelet"
	TestUrinalysis    TestKey = "lab_urinalysis"
	TestFecalysis     TestKey = "lab_fecalysis"
	TestDrugTest      TestKey = "lab_drug_test"
	TestHepatitisB    TestKey = "lab_hepatitis_b"
	TestHepatitisA    TestKey = "lab_hepatitis_a"
	TestECG           TestKey = "lab_ecg"
	TestAudiometry    TestKey = "lab_audiometry"
	TestBloodTyping   TestKey = "lab_blood_typing"
	TestPregnancyTest TestKey = "lab_pregnancy_test"
	TestSalmonella    TestKey = "lab_salmonella"
	TestChestXray     TestKey = "xray_chest"
)

// StandardTests in Form Slip order.
var StandardTests = []TestKey{
	TestPhysicalExam, TestVisualAcuity, TestHeightWeight,
	TestCBCPlatelet, TestUrinalysis, TestFecalysis, TestDrugTest,
	TestHepatitisB, TestHepatitisA, TestECG, TestAudiometry,
	TestBloodTyping, TestPregnancyTest, TestSalmonella,
	TestChestXray,
}

// IsXray reports whether the test is done by the x-ray station.
func (k TestKey) IsXray() bool {
	return k == TestChestXray
}

// StandardTestPrices in PHP.
var StandardTestPrices = map[TestKey]float64{
	TestPhysicalExam:  200,
	TestVisualAcuity:  150,
	TestHeightWeight:  150,
	TestCBCPlatelet:   200,
	TestUrinalysis:    80,
	TestFecalysis:     80,
	TestDrugTest:      300,
	TestHepatitisB:    350,
	TestHepatitisA:    350,
	TestECG:           350,
	TestAudiometry:    350,
	TestBloodTyping:   150,
	TestPregnancyTest: 200,
	TestSalmonella:    500,
	TestChestXray:     350,
}

// PackageCustom means no package, every selected test is billed separately.
const PackageCustom = "CUSTOM"

var PackagePrices = map[string]float64{
	"A": 900,
	"B": 1300,
	"C": 3500,
}

var packageA = []TestKey{
	TestPhysicalExam, TestVisualAcuity, TestHeightWeight,
	TestCBCPlatelet, TestUrinalysis, TestFecalysis,
	TestChestXray, TestDrugTest,
}

// PackageTests lists the tests included in each package price.
var PackageTests = map[string][]TestKey{
	"A": packageA,
	"B": append(append([]TestKey(nil), packageA...), TestHepatitisB),
	"C": {
		TestHepatitisB, TestHepatitisA, TestECG, TestAudiometry,
		TestBloodTyping, TestPregnancyTest, TestSalmonella,
	},
}

// DefaultTestsForType seeds the Form Slip when an appointment is approved.
func DefaultTestsForType(t AppointmentType) []TestKey {
	tests := []TestKey{
		TestPhysicalExam, TestVisualAcuity, TestHeightWeight,
		TestCBCPlatelet, TestUrinalysis, TestFecalysis, TestDrugTest,
		TestChestXray,
	}
	if t == AppointmentTypeAPE {
		tests = append(tests, TestHepatitisB)
	}
	return tests
}
