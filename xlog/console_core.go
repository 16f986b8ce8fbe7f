package xlog

var _ xLogCore = (*consoleCore)(nil)

// consoleCore writes to one of the registered process level writers.
type consoleCore struct {
	*commonCore
}

// newConsoleCore rejects writers that were never registered as a type.
func newConsoleCore(params coreParams) xLogCore {
	if params.writer >= _writerMax {
		return nil
	}
	encCfg := *defaultCoreEncoderCfg()
	encCfg.EncodeLevel = params.lvlEnc
	encCfg.EncodeTime = params.tsEnc
	return &consoleCore{
		commonCore: newCommonCore(params, writerOf(params.writer), encoderOf(params.encoder), encCfg),
	}
}
