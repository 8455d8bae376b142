package printer

// unbounded marks a variadic upper arity.
const unbounded = -1

// arity is an inclusive argument count range.
type arity struct {
	min int
	max int
}

func exactly(n int) arity      { return arity{n, n} }
func between(lo, hi int) arity { return arity{lo, hi} }
func atLeast(n int) arity      { return arity{n, unbounded} }

// function maps a source function to its execution name.
type function struct {
	name string
	arity
}

// aggregations are printed under their own name in both dialects and may
// not nest.
var aggregations = map[string]arity{
	"count":          between(0, 1),
	"countIf":        between(1, 2),
	"countDistinct":  exactly(1),
	"min":            exactly(1),
	"minIf":          exactly(2),
	"max":            exactly(1),
	"maxIf":          exactly(2),
	"sum":            exactly(1),
	"sumIf":          exactly(2),
	"avg":            exactly(1),
	"avgIf":          exactly(2),
	"any":            exactly(1),
	"anyIf":          exactly(2),
	"anyLast":        exactly(1),
	"argMax":         exactly(2),
	"argMaxIf":       exactly(3),
	"argMin":         exactly(2),
	"argMinIf":       exactly(3),
	"groupArray":     exactly(1),
	"groupArrayIf":   exactly(2),
	"groupUniqArray": exactly(1),
	"uniq":           atLeast(1),
	"uniqIf":         atLeast(2),
	"uniqExact":      atLeast(1),
	"median":         exactly(1),
	"stddevPop":      exactly(1),
	"stddevSamp":     exactly(1),
	"varPop":         exactly(1),
	"varSamp":        exactly(1),
	"corr":           exactly(2),
	"covarPop":       exactly(2),
	"covarSamp":      exactly(2),
}

// functions lists the plain functions the execution dialect understands.
var functions = map[string]function{
	// arithmetic
	"plus":     {"plus", exactly(2)},
	"minus":    {"minus", exactly(2)},
	"multiply": {"multiply", exactly(2)},
	"divide":   {"divide", exactly(2)},
	"intDiv":   {"intDiv", exactly(2)},
	"modulo":   {"modulo", exactly(2)},
	"negate":   {"negate", exactly(1)},
	"abs":      {"abs", exactly(1)},
	"round":    {"round", between(1, 2)},
	"floor":    {"floor", between(1, 2)},
	"ceil":     {"ceil", between(1, 2)},
	"sqrt":     {"sqrt", exactly(1)},
	"exp":      {"exp", exactly(1)},
	"log":      {"log", exactly(1)},
	"log2":     {"log2", exactly(1)},
	"log10":    {"log10", exactly(1)},
	"pow":      {"pow", exactly(2)},
	"least":    {"least", exactly(2)},
	"greatest": {"greatest", exactly(2)},
	"min2":     {"min2", exactly(2)},
	"max2":     {"max2", exactly(2)},

	// comparison and logic
	"equals":          {"equals", exactly(2)},
	"notEquals":       {"notEquals", exactly(2)},
	"less":            {"less", exactly(2)},
	"greater":         {"greater", exactly(2)},
	"lessOrEquals":    {"lessOrEquals", exactly(2)},
	"greaterOrEquals": {"greaterOrEquals", exactly(2)},
	"and":             {"and", atLeast(2)},
	"or":              {"or", atLeast(2)},
	"not":             {"not", exactly(1)},
	"xor":             {"xor", atLeast(2)},
	"if":              {"if", exactly(3)},
	"multiIf":         {"multiIf", atLeast(3)},
	"in":              {"in", exactly(2)},
	"notIn":           {"notIn", exactly(2)},
	"transform":       {"transform", between(3, 4)},

	// nulls
	"isNull":        {"isNull", exactly(1)},
	"isNotNull":     {"isNotNull", exactly(1)},
	"ifNull":        {"ifNull", exactly(2)},
	"coalesce":      {"coalesce", atLeast(1)},
	"nullIf":        {"nullIf", exactly(2)},
	"assumeNotNull": {"assumeNotNull", exactly(1)},
	"toNullable":    {"toNullable", exactly(1)},

	// conversion
	"toInt":      {"toInt64OrNull", exactly(1)},
	"toFloat":    {"toFloat64OrNull", exactly(1)},
	"toString":   {"toString", exactly(1)},
	"toDate":     {"toDate", exactly(1)},
	"toDateTime": {"toDateTime", exactly(1)},
	"toUUID":     {"toUUIDOrNull", exactly(1)},
	"toTimeZone": {"toTimeZone", exactly(2)},

	// dates
	"now":               {"now64", exactly(0)},
	"today":             {"today", exactly(0)},
	"yesterday":         {"yesterday", exactly(0)},
	"toYear":            {"toYear", exactly(1)},
	"toQuarter":         {"toQuarter", exactly(1)},
	"toMonth":           {"toMonth", exactly(1)},
	"toDayOfMonth":      {"toDayOfMonth", exactly(1)},
	"toDayOfWeek":       {"toDayOfWeek", exactly(1)},
	"toHour":            {"toHour", exactly(1)},
	"toMinute":          {"toMinute", exactly(1)},
	"toSecond":          {"toSecond", exactly(1)},
	"toStartOfYear":     {"toStartOfYear", exactly(1)},
	"toStartOfQuarter":  {"toStartOfQuarter", exactly(1)},
	"toStartOfMonth":    {"toStartOfMonth", exactly(1)},
	"toStartOfWeek":     {"toStartOfWeek", between(1, 2)},
	"toStartOfDay":      {"toStartOfDay", exactly(1)},
	"toStartOfHour":     {"toStartOfHour", exactly(1)},
	"toStartOfMinute":   {"toStartOfMinute", exactly(1)},
	"toUnixTimestamp":   {"toUnixTimestamp", exactly(1)},
	"dateDiff":          {"dateDiff", exactly(3)},
	"dateAdd":           {"dateAdd", exactly(3)},
	"dateSub":           {"dateSub", exactly(3)},
	"formatDateTime":    {"formatDateTime", exactly(2)},
	"toIntervalSecond":  {"toIntervalSecond", exactly(1)},
	"toIntervalMinute":  {"toIntervalMinute", exactly(1)},
	"toIntervalHour":    {"toIntervalHour", exactly(1)},
	"toIntervalDay":     {"toIntervalDay", exactly(1)},
	"toIntervalWeek":    {"toIntervalWeek", exactly(1)},
	"toIntervalMonth":   {"toIntervalMonth", exactly(1)},
	"toIntervalQuarter": {"toIntervalQuarter", exactly(1)},
	"toIntervalYear":    {"toIntervalYear", exactly(1)},

	// strings
	"empty":            {"empty", exactly(1)},
	"notEmpty":         {"notEmpty", exactly(1)},
	"length":           {"length", exactly(1)},
	"lower":            {"lower", exactly(1)},
	"upper":            {"upper", exactly(1)},
	"reverse":          {"reverse", exactly(1)},
	"concat":           {"concat", atLeast(2)},
	"substring":        {"substring", between(2, 3)},
	"trim":             {"trim", exactly(1)},
	"trimLeft":         {"trimLeft", exactly(1)},
	"trimRight":        {"trimRight", exactly(1)},
	"position":         {"position", between(2, 3)},
	"startsWith":       {"startsWith", exactly(2)},
	"endsWith":         {"endsWith", exactly(2)},
	"replaceOne":       {"replaceOne", exactly(3)},
	"replaceAll":       {"replaceAll", exactly(3)},
	"replaceRegexpOne": {"replaceRegexpOne", exactly(3)},
	"replaceRegexpAll": {"replaceRegexpAll", exactly(3)},
	"splitByChar":      {"splitByChar", between(2, 3)},
	"splitByString":    {"splitByString", between(2, 3)},
	"match":            {"match", exactly(2)},
	"like":             {"like", exactly(2)},
	"ilike":            {"ilike", exactly(2)},
	"notLike":          {"notLike", exactly(2)},
	"notILike":         {"notILike", exactly(2)},
	"extract":          {"extract", exactly(2)},

	// json
	"JSONHas":           {"JSONHas", atLeast(1)},
	"JSONLength":        {"JSONLength", atLeast(1)},
	"JSONExtractRaw":    {"JSONExtractRaw", atLeast(1)},
	"JSONExtractString": {"JSONExtractString", atLeast(1)},
	"JSONExtractInt":    {"JSONExtractInt", atLeast(1)},
	"JSONExtractFloat":  {"JSONExtractFloat", atLeast(1)},
	"JSONExtractBool":   {"JSONExtractBool", atLeast(1)},

	// arrays and tuples
	"array":         {"array", atLeast(0)},
	"tuple":         {"tuple", atLeast(0)},
	"range":         {"range", between(1, 3)},
	"arrayElement":  {"arrayElement", exactly(2)},
	"arrayJoin":     {"arrayJoin", exactly(1)},
	"has":           {"has", exactly(2)},
	"hasAll":        {"hasAll", exactly(2)},
	"hasAny":        {"hasAny", exactly(2)},
	"indexOf":       {"indexOf", exactly(2)},
	"arrayConcat":   {"arrayConcat", atLeast(2)},
	"arrayDistinct": {"arrayDistinct", exactly(1)},
	"arrayReverse":  {"arrayReverse", exactly(1)},
	"arraySort":     {"arraySort", atLeast(1)},
	"arrayMap":      {"arrayMap", atLeast(2)},
	"arrayFilter":   {"arrayFilter", atLeast(2)},
	"arrayExists":   {"arrayExists", atLeast(1)},
	"arrayAll":      {"arrayAll", atLeast(1)},
	"arrayCount":    {"arrayCount", atLeast(1)},
	"arraySum":      {"arraySum", atLeast(1)},

	// hashing and ids
	"cityHash64":     {"cityHash64", atLeast(1)},
	"sipHash64":      {"sipHash64", atLeast(1)},
	"generateUUIDv4": {"generateUUIDv4", exactly(0)},
}

// timezoneFunctions get the active timezone appended in the execution
// dialect.
var timezoneFunctions = map[string]bool{
	"now":             true,
	"toDateTime":      true,
	"toStartOfDay":    true,
	"toStartOfHour":   true,
	"toStartOfMinute": true,
	"toStartOfMonth":  true,
	"toStartOfYear":   true,
}

// IsAggregation reports whether name is an aggregate function.
func IsAggregation(name string) bool {
	_, ok := aggregations[name]
	return ok
}

// IsFunction reports whether name is a known function or aggregation.
func IsFunction(name string) bool {
	if IsAggregation(name) {
		return true
	}
	_, ok := functions[name]
	return ok
}
