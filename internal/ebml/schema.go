package ebml

// ElementType is the semantic type of an element's payload.
type ElementType uint8

const (
	TypeUnknown ElementType = iota
	TypeUnsigned
	TypeSigned
	TypeFloat
	TypeString
	TypeUTF8
	TypeDate
	TypeBinary
	TypeMaster
)

func (t ElementType) String() string {
	switch t {
	case TypeUnsigned:
		return "unsigned"
	case TypeSigned:
		return "signed"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeUTF8:
		return "utf8"
	case TypeDate:
		return "date"
	case TypeBinary:
		return "binary"
	case TypeMaster:
		return "master"
	default:
		return "unknown"
	}
}

// Special marks the few elements the decoder treats differently from their
// schema type.
type Special uint8

const (
	SpecialNone Special = iota
	SpecialEBML
	SpecialCluster
	SpecialTimecode
	SpecialBlock
	SpecialSimpleBlock
)

const (
	IDEBML        = 0x1A45DFA3
	IDSegment     = 0x18538067
	IDCluster     = 0x1F43B675
	IDTimecode    = 0xE7
	IDSimpleBlock = 0xA3
	IDBlockGroup  = 0xA0
	IDBlock       = 0xA1
	IDVoid        = 0xEC
)

// SchemaEntry describes one known element ID. Level is the nesting depth
// from the Matroska specification; -1 marks global elements that may appear
// at any depth.
type SchemaEntry struct {
	ID          uint64
	Type        ElementType
	Name        string
	Level       int
	MinVersion  int
	Multiple    bool
	WebM        bool
	Description string
}

// Special reports how the decoder should treat elements of this entry.
func (e SchemaEntry) Special() Special {
	switch e.ID {
	case IDEBML:
		return SpecialEBML
	case IDCluster:
		return SpecialCluster
	case IDTimecode:
		return SpecialTimecode
	case IDBlock:
		return SpecialBlock
	case IDSimpleBlock:
		return SpecialSimpleBlock
	}
	return SpecialNone
}

var unknownEntry = SchemaEntry{Type: TypeUnknown, Name: "unknown", Level: -1, MinVersion: -1}

// Lookup returns the schema entry for id. Unmapped IDs are not an error: they
// come back named "unknown" and are decoded as opaque bytes.
func Lookup(id uint64) SchemaEntry {
	if entry, ok := schema[id]; ok {
		return entry
	}
	entry := unknownEntry
	entry.ID = id
	return entry
}

var schema = func() map[uint64]SchemaEntry {
	m := make(map[uint64]SchemaEntry, len(schemaEntries))
	for _, entry := range schemaEntries {
		m[entry.ID] = entry
	}
	return m
}()

var schemaEntries = []SchemaEntry{
	// EBML header.
	{IDEBML, TypeMaster, "EBML", 0, 1, true, true, "Set the EBML characteristics of the data to follow."},
	{0x4286, TypeUnsigned, "EBMLVersion", 1, 1, false, true, "The version of EBML parser used to create the file."},
	{0x42F7, TypeUnsigned, "EBMLReadVersion", 1, 1, false, true, "The minimum EBML version a parser has to support to read this file."},
	{0x42F2, TypeUnsigned, "EBMLMaxIDLength", 1, 1, false, true, "The maximum length of the IDs in this file."},
	{0x42F3, TypeUnsigned, "EBMLMaxSizeLength", 1, 1, false, true, "The maximum length of the sizes in this file."},
	{0x4282, TypeString, "DocType", 1, 1, false, true, "A string that describes the type of document."},
	{0x4287, TypeUnsigned, "DocTypeVersion", 1, 1, false, true, "The version of DocType interpreter used to create the file."},
	{0x4285, TypeUnsigned, "DocTypeReadVersion", 1, 1, false, true, "The minimum DocType version an interpreter has to support to read this file."},
	{IDVoid, TypeBinary, "Void", -1, 1, true, true, "Used to void damaged data, to avoid unexpected behaviors when using damaged data."},
	{0xBF, TypeBinary, "CRC-32", -1, 1, false, false, "The CRC is computed on all the data of the Master-element it's in."},

	// Segment and meta seek.
	{IDSegment, TypeMaster, "Segment", 0, 1, true, true, "The Root Element that contains all other Top-Level Elements."},
	{0x114D9B74, TypeMaster, "SeekHead", 1, 1, true, true, "Contains the Segment Position of other Top-Level Elements."},
	{0x4DBB, TypeMaster, "Seek", 2, 1, true, true, "Contains a single seek entry to an EBML Element."},
	{0x53AB, TypeBinary, "SeekID", 3, 1, false, true, "The binary ID corresponding to the Element name."},
	{0x53AC, TypeUnsigned, "SeekPosition", 3, 1, false, true, "The Segment Position of the Element."},

	// Segment information.
	{0x1549A966, TypeMaster, "Info", 1, 1, true, true, "Contains general information about the Segment."},
	{0x73A4, TypeBinary, "SegmentUID", 2, 1, false, false, "A randomly generated unique ID to identify the Segment."},
	{0x7384, TypeUTF8, "SegmentFilename", 2, 1, false, false, "A filename corresponding to this Segment."},
	{0x3CB923, TypeBinary, "PrevUID", 2, 1, false, false, ""},
	{0x3C83AB, TypeUTF8, "PrevFilename", 2, 1, false, false, ""},
	{0x3EB923, TypeBinary, "NextUID", 2, 1, false, false, ""},
	{0x3E83BB, TypeUTF8, "NextFilename", 2, 1, false, false, ""},
	{0x4444, TypeBinary, "SegmentFamily", 2, 1, true, false, ""},
	{0x6924, TypeMaster, "ChapterTranslate", 2, 1, true, false, ""},
	{0x69FC, TypeUnsigned, "ChapterTranslateEditionUID", 3, 1, true, false, ""},
	{0x69BF, TypeUnsigned, "ChapterTranslateCodec", 3, 1, false, false, ""},
	{0x69A5, TypeBinary, "ChapterTranslateID", 3, 1, false, false, ""},
	{0x2AD7B1, TypeUnsigned, "TimecodeScale", 2, 1, false, true, "Timestamp scale in nanoseconds (1.000.000 means all timestamps in the Segment are expressed in milliseconds)."},
	{0x4489, TypeFloat, "Duration", 2, 1, false, true, "Duration of the Segment in nanoseconds based on TimecodeScale."},
	{0x4461, TypeDate, "DateUTC", 2, 1, false, true, "The date and time that the Segment was created by the muxing application or library."},
	{0x7BA9, TypeUTF8, "Title", 2, 1, false, true, "General name of the Segment."},
	{0x4D80, TypeUTF8, "MuxingApp", 2, 1, false, true, "Muxing application or library."},
	{0x5741, TypeUTF8, "WritingApp", 2, 1, false, true, "Writing application."},

	// Cluster.
	{IDCluster, TypeMaster, "Cluster", 1, 1, true, true, "The Top-Level Element containing the (monolithic) Block structure."},
	{IDTimecode, TypeUnsigned, "Timecode", 2, 1, false, true, "Absolute timestamp of the cluster (based on TimecodeScale)."},
	{0x5854, TypeMaster, "SilentTracks", 2, 1, false, false, ""},
	{0x58D7, TypeUnsigned, "SilentTrackNumber", 3, 1, true, false, ""},
	{0xA7, TypeUnsigned, "Position", 2, 1, false, false, "The Segment Position of the Cluster in the Segment."},
	{0xAB, TypeUnsigned, "PrevSize", 2, 1, false, true, "Size of the previous Cluster, in octets."},
	{IDSimpleBlock, TypeBinary, "SimpleBlock", 2, 2, true, true, "Similar to Block but without all the extra information."},
	{IDBlockGroup, TypeMaster, "BlockGroup", 2, 1, true, true, "Basic container of information containing a single Block and information specific to that Block."},
	{IDBlock, TypeBinary, "Block", 3, 1, false, true, "Block containing the actual data to be rendered and a timestamp relative to the Cluster Timestamp."},
	{0xA2, TypeBinary, "BlockVirtual", 3, 1, false, false, ""},
	{0x75A1, TypeMaster, "BlockAdditions", 3, 1, false, false, ""},
	{0xA6, TypeMaster, "BlockMore", 4, 1, true, false, ""},
	{0xEE, TypeUnsigned, "BlockAddID", 5, 1, false, false, ""},
	{0xA5, TypeBinary, "BlockAdditional", 5, 1, false, false, ""},
	{0x9B, TypeUnsigned, "BlockDuration", 3, 1, false, true, "The duration of the Block (based on TimecodeScale)."},
	{0xFA, TypeUnsigned, "ReferencePriority", 3, 1, false, false, ""},
	{0xFB, TypeSigned, "ReferenceBlock", 3, 1, true, true, "Timestamp of another frame used as a reference."},
	{0xA4, TypeBinary, "CodecState", 3, 2, false, false, ""},
	{0x75A2, TypeSigned, "DiscardPadding", 3, 4, false, true, "Duration in nanoseconds of the silent data added to the Block."},
	{0x8E, TypeMaster, "Slices", 3, 1, false, false, ""},
	{0xE8, TypeMaster, "TimeSlice", 4, 1, true, false, ""},
	{0xCC, TypeUnsigned, "LaceNumber", 5, 1, false, false, ""},
	{0xAF, TypeBinary, "EncryptedBlock", 2, 1, true, false, ""},

	// Tracks.
	{0x1654AE6B, TypeMaster, "Tracks", 1, 1, true, true, "A Top-Level Element of information with many tracks described."},
	{0xAE, TypeMaster, "TrackEntry", 2, 1, true, true, "Describes a track with all Elements."},
	{0xD7, TypeUnsigned, "TrackNumber", 3, 1, false, true, "The track number as used in the Block Header."},
	{0x73C5, TypeUnsigned, "TrackUID", 3, 1, false, true, "A unique ID to identify the Track."},
	{0x83, TypeUnsigned, "TrackType", 3, 1, false, true, "A set of track types coded on 8 bits."},
	{0xB9, TypeUnsigned, "FlagEnabled", 3, 2, false, true, ""},
	{0x88, TypeUnsigned, "FlagDefault", 3, 1, false, true, ""},
	{0x55AA, TypeUnsigned, "FlagForced", 3, 1, false, true, ""},
	{0x9C, TypeUnsigned, "FlagLacing", 3, 1, false, true, ""},
	{0x6DE7, TypeUnsigned, "MinCache", 3, 1, false, false, ""},
	{0x6DF8, TypeUnsigned, "MaxCache", 3, 1, false, false, ""},
	{0x23E383, TypeUnsigned, "DefaultDuration", 3, 1, false, true, "Number of nanoseconds per frame."},
	{0x234E7A, TypeUnsigned, "DefaultDecodedFieldDuration", 3, 4, false, false, ""},
	{0x23314F, TypeFloat, "TrackTimecodeScale", 3, 1, false, false, ""},
	{0x55EE, TypeUnsigned, "MaxBlockAdditionID", 3, 1, false, false, ""},
	{0x536E, TypeUTF8, "Name", 3, 1, false, true, "A human-readable track name."},
	{0x22B59C, TypeString, "Language", 3, 1, false, true, "Specifies the language of the track."},
	{0x86, TypeString, "CodecID", 3, 1, false, true, "An ID corresponding to the codec."},
	{0x63A2, TypeBinary, "CodecPrivate", 3, 1, false, true, "Private data only known to the codec."},
	{0x258688, TypeUTF8, "CodecName", 3, 1, false, true, "A human-readable string specifying the codec."},
	{0x7446, TypeUnsigned, "AttachmentLink", 3, 1, false, false, ""},
	{0xAA, TypeUnsigned, "CodecDecodeAll", 3, 2, false, false, ""},
	{0x6FAB, TypeUnsigned, "TrackOverlay", 3, 1, true, false, ""},
	{0x56AA, TypeUnsigned, "CodecDelay", 3, 4, false, true, ""},
	{0x56BB, TypeUnsigned, "SeekPreRoll", 3, 4, false, true, ""},
	{0x6624, TypeMaster, "TrackTranslate", 3, 1, true, false, ""},
	{0x66FC, TypeUnsigned, "TrackTranslateEditionUID", 4, 1, true, false, ""},
	{0x66BF, TypeUnsigned, "TrackTranslateCodec", 4, 1, false, false, ""},
	{0x66A5, TypeBinary, "TrackTranslateTrackID", 4, 1, false, false, ""},
	{0xE0, TypeMaster, "Video", 3, 1, false, true, "Video settings."},
	{0x9A, TypeUnsigned, "FlagInterlaced", 4, 2, false, true, ""},
	{0x9D, TypeUnsigned, "FieldOrder", 4, 4, false, false, ""},
	{0x53B8, TypeUnsigned, "StereoMode", 4, 3, false, true, ""},
	{0x53C0, TypeUnsigned, "AlphaMode", 4, 3, false, true, ""},
	{0xB0, TypeUnsigned, "PixelWidth", 4, 1, false, true, "Width of the encoded video frames in pixels."},
	{0xBA, TypeUnsigned, "PixelHeight", 4, 1, false, true, "Height of the encoded video frames in pixels."},
	{0x54AA, TypeUnsigned, "PixelCropBottom", 4, 1, false, true, ""},
	{0x54BB, TypeUnsigned, "PixelCropTop", 4, 1, false, true, ""},
	{0x54CC, TypeUnsigned, "PixelCropLeft", 4, 1, false, true, ""},
	{0x54DD, TypeUnsigned, "PixelCropRight", 4, 1, false, true, ""},
	{0x54B0, TypeUnsigned, "DisplayWidth", 4, 1, false, true, ""},
	{0x54BA, TypeUnsigned, "DisplayHeight", 4, 1, false, true, ""},
	{0x54B2, TypeUnsigned, "DisplayUnit", 4, 1, false, true, ""},
	{0x54B3, TypeUnsigned, "AspectRatioType", 4, 1, false, true, ""},
	{0x2EB524, TypeBinary, "ColourSpace", 4, 1, false, false, ""},
	{0x55B0, TypeMaster, "Colour", 4, 4, false, true, ""},
	{0x55B1, TypeUnsigned, "MatrixCoefficients", 5, 4, false, true, ""},
	{0x55B2, TypeUnsigned, "BitsPerChannel", 5, 4, false, true, ""},
	{0x55B9, TypeUnsigned, "Range", 5, 4, false, true, ""},
	{0x55BA, TypeUnsigned, "TransferCharacteristics", 5, 4, false, true, ""},
	{0x55BB, TypeUnsigned, "Primaries", 5, 4, false, true, ""},
	{0xE1, TypeMaster, "Audio", 3, 1, false, true, "Audio settings."},
	{0xB5, TypeFloat, "SamplingFrequency", 4, 1, false, true, "Sampling frequency in Hz."},
	{0x78B5, TypeFloat, "OutputSamplingFrequency", 4, 1, false, true, ""},
	{0x9F, TypeUnsigned, "Channels", 4, 1, false, true, "Numbers of channels in the track."},
	{0x6264, TypeUnsigned, "BitDepth", 4, 1, false, true, ""},
	{0xE2, TypeMaster, "TrackOperation", 3, 3, false, false, ""},
	{0xE3, TypeMaster, "TrackCombinePlanes", 4, 3, false, false, ""},
	{0xE4, TypeMaster, "TrackPlane", 5, 3, true, false, ""},
	{0xE5, TypeUnsigned, "TrackPlaneUID", 6, 3, false, false, ""},
	{0xE6, TypeUnsigned, "TrackPlaneType", 6, 3, false, false, ""},
	{0xE9, TypeMaster, "TrackJoinBlocks", 4, 3, false, false, ""},
	{0xED, TypeUnsigned, "TrackJoinUID", 5, 3, true, false, ""},
	{0x6D80, TypeMaster, "ContentEncodings", 3, 1, false, true, ""},
	{0x6240, TypeMaster, "ContentEncoding", 4, 1, true, true, ""},
	{0x5031, TypeUnsigned, "ContentEncodingOrder", 5, 1, false, true, ""},
	{0x5032, TypeUnsigned, "ContentEncodingScope", 5, 1, false, true, ""},
	{0x5033, TypeUnsigned, "ContentEncodingType", 5, 1, false, true, ""},
	{0x5034, TypeMaster, "ContentCompression", 5, 1, false, false, ""},
	{0x4254, TypeUnsigned, "ContentCompAlgo", 6, 1, false, false, ""},
	{0x4255, TypeBinary, "ContentCompSettings", 6, 1, false, false, ""},
	{0x5035, TypeMaster, "ContentEncryption", 5, 1, false, true, ""},
	{0x47E1, TypeUnsigned, "ContentEncAlgo", 6, 1, false, true, ""},
	{0x47E2, TypeBinary, "ContentEncKeyID", 6, 1, false, true, ""},
	{0x47E7, TypeMaster, "ContentEncAESSettings", 6, 4, false, true, ""},
	{0x47E8, TypeUnsigned, "AESSettingsCipherMode", 7, 4, false, true, ""},
	{0x47E3, TypeBinary, "ContentSignature", 6, 1, false, false, ""},
	{0x47E4, TypeBinary, "ContentSigKeyID", 6, 1, false, false, ""},
	{0x47E5, TypeUnsigned, "ContentSigAlgo", 6, 1, false, false, ""},
	{0x47E6, TypeUnsigned, "ContentSigHashAlgo", 6, 1, false, false, ""},

	// Cueing data.
	{0x1C53BB6B, TypeMaster, "Cues", 1, 1, false, true, "A Top-Level Element to speed seeking access."},
	{0xBB, TypeMaster, "CuePoint", 2, 1, true, true, ""},
	{0xB3, TypeUnsigned, "CueTime", 3, 1, false, true, ""},
	{0xB7, TypeMaster, "CueTrackPositions", 3, 1, true, true, ""},
	{0xF7, TypeUnsigned, "CueTrack", 4, 1, false, true, ""},
	{0xF1, TypeUnsigned, "CueClusterPosition", 4, 1, false, true, ""},
	{0xF0, TypeUnsigned, "CueRelativePosition", 4, 4, false, true, ""},
	{0xB2, TypeUnsigned, "CueDuration", 4, 4, false, true, ""},
	{0x5378, TypeUnsigned, "CueBlockNumber", 4, 1, false, true, ""},
	{0xEA, TypeUnsigned, "CueCodecState", 4, 2, false, false, ""},
	{0xDB, TypeMaster, "CueReference", 4, 2, true, false, ""},
	{0x96, TypeUnsigned, "CueRefTime", 5, 2, false, false, ""},

	// Attachments.
	{0x1941A469, TypeMaster, "Attachments", 1, 1, false, false, ""},
	{0x61A7, TypeMaster, "AttachedFile", 2, 1, true, false, ""},
	{0x467E, TypeUTF8, "FileDescription", 3, 1, false, false, ""},
	{0x466E, TypeUTF8, "FileName", 3, 1, false, false, ""},
	{0x4660, TypeString, "FileMimeType", 3, 1, false, false, ""},
	{0x465C, TypeBinary, "FileData", 3, 1, false, false, ""},
	{0x46AE, TypeUnsigned, "FileUID", 3, 1, false, false, ""},

	// Chapters.
	{0x1043A770, TypeMaster, "Chapters", 1, 1, false, true, ""},
	{0x45B9, TypeMaster, "EditionEntry", 2, 1, true, true, ""},
	{0x45BC, TypeUnsigned, "EditionUID", 3, 1, false, false, ""},
	{0x45BD, TypeUnsigned, "EditionFlagHidden", 3, 1, false, false, ""},
	{0x45DB, TypeUnsigned, "EditionFlagDefault", 3, 1, false, false, ""},
	{0x45DD, TypeUnsigned, "EditionFlagOrdered", 3, 1, false, false, ""},
	{0xB6, TypeMaster, "ChapterAtom", 3, 1, true, true, ""},
	{0x73C4, TypeUnsigned, "ChapterUID", 4, 1, false, true, ""},
	{0x5654, TypeUTF8, "ChapterStringUID", 4, 3, false, true, ""},
	{0x91, TypeUnsigned, "ChapterTimeStart", 4, 1, false, true, ""},
	{0x92, TypeUnsigned, "ChapterTimeEnd", 4, 1, false, false, ""},
	{0x98, TypeUnsigned, "ChapterFlagHidden", 4, 1, false, false, ""},
	{0x4598, TypeUnsigned, "ChapterFlagEnabled", 4, 1, false, false, ""},
	{0x6E67, TypeBinary, "ChapterSegmentUID", 4, 1, false, false, ""},
	{0x6EBC, TypeUnsigned, "ChapterSegmentEditionUID", 4, 1, false, false, ""},
	{0x63C3, TypeUnsigned, "ChapterPhysicalEquiv", 4, 1, false, false, ""},
	{0x8F, TypeMaster, "ChapterTrack", 4, 1, false, false, ""},
	{0x89, TypeUnsigned, "ChapterTrackNumber", 5, 1, true, false, ""},
	{0x80, TypeMaster, "ChapterDisplay", 4, 1, true, true, ""},
	{0x85, TypeUTF8, "ChapString", 5, 1, false, true, ""},
	{0x437C, TypeString, "ChapLanguage", 5, 1, true, true, ""},
	{0x437E, TypeString, "ChapCountry", 5, 1, true, false, ""},
	{0x6944, TypeMaster, "ChapProcess", 4, 1, true, false, ""},
	{0x6955, TypeUnsigned, "ChapProcessCodecID", 5, 1, false, false, ""},
	{0x450D, TypeBinary, "ChapProcessPrivate", 5, 1, false, false, ""},
	{0x6911, TypeMaster, "ChapProcessCommand", 5, 1, true, false, ""},
	{0x6922, TypeUnsigned, "ChapProcessTime", 6, 1, false, false, ""},
	{0x6933, TypeBinary, "ChapProcessData", 6, 1, false, false, ""},

	// Tagging.
	{0x1254C367, TypeMaster, "Tags", 1, 1, true, true, ""},
	{0x7373, TypeMaster, "Tag", 2, 1, true, true, ""},
	{0x63C0, TypeMaster, "Targets", 3, 1, false, true, ""},
	{0x68CA, TypeUnsigned, "TargetTypeValue", 4, 1, false, true, ""},
	{0x63CA, TypeString, "TargetType", 4, 1, false, true, ""},
	{0x63C5, TypeUnsigned, "TagTrackUID", 4, 1, true, true, ""},
	{0x63C9, TypeUnsigned, "TagEditionUID", 4, 1, true, false, ""},
	{0x63C4, TypeUnsigned, "TagChapterUID", 4, 1, true, false, ""},
	{0x63C6, TypeUnsigned, "TagAttachmentUID", 4, 1, true, false, ""},
	{0x67C8, TypeMaster, "SimpleTag", 3, 1, true, true, ""},
	{0x45A3, TypeUTF8, "TagName", 4, 1, false, true, ""},
	{0x447A, TypeString, "TagLanguage", 4, 1, false, true, ""},
	{0x4484, TypeUnsigned, "TagDefault", 4, 1, false, true, ""},
	{0x4487, TypeUTF8, "TagString", 4, 1, false, true, ""},
	{0x4485, TypeBinary, "TagBinary", 4, 1, false, true, ""},
}
