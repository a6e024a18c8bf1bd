package risk

import (
	"context"
	"io/fs"
	"os"
	"runtime"
)

// DeviceSignals are the weighted device indicators.
type DeviceSignals struct {
	Jailbroken bool
	Rooted     bool
	Debugging  bool
	Emulator   bool
}

// DeviceIntegrityProbe inspects the host for compromise indicators.
type DeviceIntegrityProbe interface {
	Probe(ctx context.Context) (DeviceSignals, error)
}

// UnknownDeviceProbe reports a clean device. It performs no attestation and
// exists for hosts without a platform integrity facility.
type UnknownDeviceProbe struct{}

func (UnknownDeviceProbe) Probe(context.Context) (DeviceSignals, error) {
	return DeviceSignals{}, nil
}

// DeviceProbeFunc adapts a function to [DeviceIntegrityProbe].
type DeviceProbeFunc func(ctx context.Context) (DeviceSignals, error)

func (f DeviceProbeFunc) Probe(ctx context.Context) (DeviceSignals, error) { return f(ctx) }

// JailbreakPaths are filesystem artifacts of common iOS jailbreaks.
var JailbreakPaths = []string{
	"/Applications/Cydia.app",
	"/Applications/blackra1n.app",
	"/Applications/FakeCarrier.app",
	"/Applications/Icy.app",
	"/Applications/IntelliScreen.app",
	"/Applications/MxTube.app",
	"/Applications/RockApp.app",
	"/Applications/SBSettings.app",
	"/Applications/WinterBoard.app",
	"/private/var/lib/apt/",
	"/private/var/lib/cydia",
	"/private/var/mobile/Library/SBSettings/Themes",
	"/private/var/stash",
	"/private/var/tmp/cydia.log",
	"/System/Library/LaunchDaemons/com.ikey.bbot.plist",
	"/System/Library/LaunchDaemons/com.saurik.Cydia.Startup.plist",
	"/usr/bin/sshd",
	"/usr/libexec/sftp-server",
	"/usr/sbin/sshd",
	"/etc/apt",
	"/bin/bash",
	"/Library/MobileSubstrate/",
}

// RootPaths are filesystem artifacts of rooted Android builds.
var RootPaths = []string{
	"/sbin/su",
	"/system/bin/su",
	"/system/xbin/su",
	"/system/app/SuperSU.apk",
	"/system/app/SuperSU",
	"/system/app/superuser.apk",
	"/system/app/Superuser.apk",
	"/system/app/Superuser",
	"/data/data/com.noshufou.android.su",
	"/data/data/com.thirdparty.superuser",
	"/data/data/eu.chainfire.supersu",
	"/data/data/com.koushikdutta.superuser",
	"/system/etc/init.d/99SuperSUDaemon",
	"/dev/com.koushikdutta.superuser.daemon/",
	"/system/xbin/daemonsu",
}

// PathProbe stats known jailbreak and root artifacts. The iOS list is only
// consulted when Platform is "ios" and the Android list only for "android";
// on other platforms both signals stay false. Debugging mirrors DevMode.
type PathProbe struct {
	Platform string
	DevMode  bool
	Emulator bool

	// Stat defaults to os.Stat.
	Stat func(name string) (fs.FileInfo, error)
}

// NewPathProbe returns a probe for the running GOOS.
func NewPathProbe(devMode bool) *PathProbe {
	return &PathProbe{Platform: runtime.GOOS, DevMode: devMode}
}

func (p *PathProbe) Probe(ctx context.Context) (DeviceSignals, error) {
	stat := p.Stat
	if stat == nil {
		stat = os.Stat
	}

	var out DeviceSignals
	var err error
	switch p.Platform {
	case "ios":
		out.Jailbroken, err = anyExists(ctx, stat, JailbreakPaths)
	case "android":
		out.Rooted, err = anyExists(ctx, stat, RootPaths)
	}
	if err != nil {
		return DeviceSignals{}, err
	}
	out.Debugging = p.DevMode
	out.Emulator = p.Emulator
	return out, nil
}

func anyExists(ctx context.Context, stat func(string) (fs.FileInfo, error), paths []string) (bool, error) {
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		// Any stat failure counts as absent.
		if _, err := stat(path); err == nil {
			return true, nil
		}
	}
	return false, nil
}
