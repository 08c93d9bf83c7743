package utils

//DefaultViewMode is used when a request or a command does not name one
const DefaultViewMode = "lateral"

//TempVideoExt is the container annotated frames are written to before the conversion to the production format
const TempVideoExt = "avi"

//TempVideoCodec is the fourcc of the temp container (XVID == MPEG-4 codec)
const TempVideoCodec = "XVID"

//FallbackFPS is used when a source does not report its frame rate (most camera devices)
const FallbackFPS = 30.0

//ImageFormats are the encodings the single frame endpoint can answer with, the first one is the default
var ImageFormats = []string{"jpg", "png", "bmp"}

//RequiredConfig lists the configuration keys the server cannot start without
var RequiredConfig = []string{"video.prod_format", "directory.source", "directory.ready", "directory.temp"}
