package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifestXML = `<?xml version="1.0" encoding="utf-8"?>
<manifest>
  <infrastructure>
    <target name="test1">
      <system>test</system>
      <clientInterface>disnix-ssh-client</clientInterface>
      <targetProperty>hostname</targetProperty>
      <numOfCores>2</numOfCores>
      <property name="hostname">test1.example.org</property>
      <containers>
        <container name="process">
          <property name="port">8080</property>
        </container>
      </containers>
    </target>
  </infrastructure>
  <services>
    <service>
      <name>webapp</name>
      <pkg>webapp</pkg>
      <type>process</type>
    </service>
  </services>
  <serviceMappings>
    <mapping>
      <service>webapp</service>
      <container>process</container>
      <target>test1</target>
    </mapping>
  </serviceMappings>
</manifest>
`

func TestIsNixPath(t *testing.T) {
	assert.True(t, isNixPath("out.nix"))
	assert.True(t, isNixPath("out.NIX"))
	assert.False(t, isNixPath("out.xml"))
	assert.False(t, isNixPath("out"))
}

func TestConvertManifestXMLToNix(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "manifest.xml")
	out := filepath.Join(dir, "manifest.nix")
	require.NoError(t, os.WriteFile(in, []byte(sampleManifestXML), 0o644))

	cmd := newConvertManifestCmd()
	cmd.RunE(cmd, []string{in, out})

	contents, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "webapp")
}

func TestConvertManifestRoundTripsThroughXML(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "manifest.xml")
	out := filepath.Join(dir, "manifest-copy.xml")
	require.NoError(t, os.WriteFile(in, []byte(sampleManifestXML), 0o644))

	cmd := newConvertManifestCmd()
	err := cmd.RunE(cmd, []string{in, out})
	require.NoError(t, err)

	roundTripped, err := loadManifestFile(out)
	require.NoError(t, err)
	assert.Equal(t, "webapp", roundTripped.Services["webapp"].Name)
}
