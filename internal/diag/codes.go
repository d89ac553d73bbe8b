package diag

import (
	"fmt"
	"sort"
)

// Code identifies a message. The numeric band decides the severity.
type Code uint16

const (
	UnknownCode Code = 0

	// Lookup and declaration errors.
	UnknownId                  Code = 1001
	AmbiguousReference         Code = 1002
	CannotAccess               Code = 1003
	IdAlreadyDefined           Code = 1004
	LessAccessable             Code = 1005
	SameOverloads              Code = 1006
	ParamIsntOptional          Code = 1007
	ParamArrayMustBeLast       Code = 1008
	OperatorMustBePublicStatic Code = 1009
	OperatorOutsideStructure   Code = 1010
	CtorOutsideStructure       Code = 1011
	AccessOutsideStructure     Code = 1012
	CannotCalcConst            Code = 1013
	CannotConvert              Code = 1014
	CannotApplyOperator        Code = 1015
	NotConstValue              Code = 1016
	UnknownAccess              Code = 1017

	// Modifier errors.
	SameModifier            Code = 1101
	MultipleAccess          Code = 1102
	VirtualOutsideStructure Code = 1103
	VirtualCtor             Code = 1104
	StaticVirtual           Code = 1105
	AbstractInNonAbstract   Code = 1106
	AbstractIncompatible    Code = 1107
	ModifierNotApplicable   Code = 1108
	InvalidAlign            Code = 1109
	AsmNameWithoutExtern    Code = 1110
	NothingToOverride       Code = 1111
	CannotInheritSealed     Code = 1112
	InvalidGuid             Code = 1113

	// Type and declaration structure errors.
	NotExpected          Code = 1201
	InvalidDeclaration   Code = 1202
	NotType              Code = 1203
	NotNamespace         Code = 1204
	CannotInheritFrom    Code = 1205
	CyclicInheritance    Code = 1206
	EnumValueOutOfRange  Code = 1207
	RecursiveLayout      Code = 1208
	AbstractNotOverriden Code = 1209
	InvalidName          Code = 1210
	InvalidExpression    Code = 1211
	UnclosedBracket      Code = 1212
	InvalidArrayLength   Code = 1213
	VoidVariable         Code = 1214
	MissingInitializer   Code = 1215

	// Preprocessor errors.
	UnmatchedEndif      Code = 1301
	UnmatchedElse       Code = 1302
	ElseAfterElse       Code = 1303
	UnterminatedIf      Code = 1304
	MacroAlreadyDefined Code = 1305
	UnknownMacro        Code = 1306
	ParamCountMismatch  Code = 1307
	InvalidDirective    Code = 1308
	PreprocError        Code = 1309

	// Assembly and driver errors.
	CannotLoadAssembly  Code = 1401
	AssemblyNotFound    Code = 1402
	CannotWriteAssembly Code = 1403
	CannotReadFile      Code = 1404
	UnknownArchitecture Code = 1405
	UnknownLanguage     Code = 1406

	// Warnings.
	PreprocWarning   Code = 5001
	HidesBaseMember  Code = 5002
	UnnecessaryNew   Code = 5003
	MacroRedefined   Code = 5004
	UnreachableLabel Code = 5005
	ConstTruncated   Code = 5006

	// Informational messages.
	PreprocInfo       Code = 8001
	AssemblyLoaded    Code = 8002
	CompilationFinish Code = 8003
)

var codeNames = map[Code]string{
	UnknownCode:                "UnknownCode",
	UnknownId:                  "UnknownId",
	AmbiguousReference:         "AmbiguousReference",
	CannotAccess:               "CannotAccess",
	IdAlreadyDefined:           "IdAlreadyDefined",
	LessAccessable:             "LessAccessable",
	SameOverloads:              "SameOverloads",
	ParamIsntOptional:          "ParamIsntOptional",
	ParamArrayMustBeLast:       "ParamArrayMustBeLast",
	OperatorMustBePublicStatic: "OperatorMustBePublicStatic",
	OperatorOutsideStructure:   "OperatorOutsideStructure",
	CtorOutsideStructure:       "CtorOutsideStructure",
	AccessOutsideStructure:     "AccessOutsideStructure",
	CannotCalcConst:            "CannotCalcConst",
	CannotConvert:              "CannotConvert",
	CannotApplyOperator:        "CannotApplyOperator",
	NotConstValue:              "NotConstValue",
	UnknownAccess:              "UnknownAccess",

	SameModifier:            "SameModifier",
	MultipleAccess:          "MultipleAccess",
	VirtualOutsideStructure: "VirtualOutsideStructure",
	VirtualCtor:             "VirtualCtor",
	StaticVirtual:           "StaticVirtual",
	AbstractInNonAbstract:   "AbstractInNonAbstract",
	AbstractIncompatible:    "AbstractIncompatible",
	ModifierNotApplicable:   "ModifierNotApplicable",
	InvalidAlign:            "InvalidAlign",
	AsmNameWithoutExtern:    "AsmNameWithoutExtern",
	NothingToOverride:       "NothingToOverride",
	CannotInheritSealed:     "CannotInheritSealed",
	InvalidGuid:             "InvalidGuid",

	NotExpected:          "NotExpected",
	InvalidDeclaration:   "InvalidDeclaration",
	NotType:              "NotType",
	NotNamespace:         "NotNamespace",
	CannotInheritFrom:    "CannotInheritFrom",
	CyclicInheritance:    "CyclicInheritance",
	EnumValueOutOfRange:  "EnumValueOutOfRange",
	RecursiveLayout:      "RecursiveLayout",
	AbstractNotOverriden: "AbstractNotOverriden",
	InvalidName:          "InvalidName",
	InvalidExpression:    "InvalidExpression",
	UnclosedBracket:      "UnclosedBracket",
	InvalidArrayLength:   "InvalidArrayLength",
	VoidVariable:         "VoidVariable",
	MissingInitializer:   "MissingInitializer",

	UnmatchedEndif:      "UnmatchedEndif",
	UnmatchedElse:       "UnmatchedElse",
	ElseAfterElse:       "ElseAfterElse",
	UnterminatedIf:      "UnterminatedIf",
	MacroAlreadyDefined: "MacroAlreadyDefined",
	UnknownMacro:        "UnknownMacro",
	ParamCountMismatch:  "ParamCountMismatch",
	InvalidDirective:    "InvalidDirective",
	PreprocError:        "PreprocError",

	CannotLoadAssembly:  "CannotLoadAssembly",
	AssemblyNotFound:    "AssemblyNotFound",
	CannotWriteAssembly: "CannotWriteAssembly",
	CannotReadFile:      "CannotReadFile",
	UnknownArchitecture: "UnknownArchitecture",
	UnknownLanguage:     "UnknownLanguage",

	PreprocWarning:   "PreprocWarning",
	HidesBaseMember:  "HidesBaseMember",
	UnnecessaryNew:   "UnnecessaryNew",
	MacroRedefined:   "MacroRedefined",
	UnreachableLabel: "UnreachableLabel",
	ConstTruncated:   "ConstTruncated",

	PreprocInfo:       "PreprocInfo",
	AssemblyLoaded:    "AssemblyLoaded",
	CompilationFinish: "CompilationFinish",
}

var codesByName = func() map[string]Code {
	m := make(map[string]Code, len(codeNames))
	for c, n := range codeNames {
		m[n] = c
	}
	return m
}()

// CodeByName returns the code whose enum name is name.
func CodeByName(name string) (Code, bool) {
	c, ok := codesByName[name]
	return c, ok
}

// Codes returns every defined code except UnknownCode, in numeric order.
func Codes() []Code {
	out := make([]Code, 0, len(codeNames))
	for c := range codeNames {
		if c != UnknownCode {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Severity derives the severity from the numeric band of the code.
func (c Code) Severity() Severity {
	switch {
	case c >= 8000:
		return SevInfo
	case c >= 5000:
		return SevWarning
	default:
		return SevError
	}
}

// ID returns the stable printable identifier, e.g. "TS1001".
func (c Code) ID() string {
	return fmt.Sprintf("TS%04d", uint16(c))
}

// String returns the enum name, which is also the message table key.
func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Code(%d)", uint16(c))
}
