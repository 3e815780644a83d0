//go:build windows

package webgpu

// WGSL compute shaders for tensor operations.
// Using string constants instead of embed for simplicity.

// workgroupSize is the default number of threads per workgroup.
const workgroupSize = 256

// addShader performs element-wise addition: result = a + b.
// Operands are broadcast on the host before upload.
const addShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = a[idx] + b[idx];
    }
}
`

// unaryShader builds an element-wise shader applying expr to x.
func unaryShader(expr string) string {
	return `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        let x = input[idx];
        result[idx] = ` + expr + `;
    }
}
`
}

var (
	tanhShader     = unaryShader("tanh(x)")
	sigmoidShader  = unaryShader("select(exp(x) / (1.0 + exp(x)), 1.0 / (1.0 + exp(-x)), x >= 0.0)")
	reluShader     = unaryShader("max(0.0, x)")
	softplusShader = unaryShader("max(x, 0.0) + log(1.0 + exp(-abs(x)))")
)

// transposeShader permutes a tensor of rank <= 4. Lower ranks are padded
// with leading unit dimensions on the host.
// gather_i is the source stride of output dimension i.
const transposeShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    total: u32,
    out_stride_0: u32,
    out_stride_1: u32,
    out_stride_2: u32,
    out_stride_3: u32,
    gather_0: u32,
    gather_1: u32,
    gather_2: u32,
    gather_3: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.total) {
        return;
    }

    var rem = idx;
    let c0 = rem / params.out_stride_0;
    rem = rem % params.out_stride_0;
    let c1 = rem / params.out_stride_1;
    rem = rem % params.out_stride_1;
    let c2 = rem / params.out_stride_2;
    rem = rem % params.out_stride_2;
    let c3 = rem / params.out_stride_3;

    let src = c0 * params.gather_0 + c1 * params.gather_1 + c2 * params.gather_2 + c3 * params.gather_3;
    result[idx] = input[src];
}
`

// conv2dShader performs 2D cross-correlation.
// Input shape: [batch, in_channels, height, width].
// Kernel shape: [out_channels, in_channels, kH, kW].
// Output shape: [batch, out_channels, out_height, out_width].
const conv2dShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read> kernel: array<f32>;
@group(0) @binding(2) var<storage, read_write> output: array<f32>;

struct Params {
    batch: u32,
    in_channels: u32,
    in_height: u32,
    in_width: u32,
    out_channels: u32,
    kernel_h: u32,
    kernel_w: u32,
    stride_h: u32,
    stride_w: u32,
    pad_h: u32,
    pad_w: u32,
    out_height: u32,
    out_width: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let b = global_id.z / params.out_channels;
    let oc = global_id.z % params.out_channels;
    let oh = global_id.y;
    let ow = global_id.x;

    if (b >= params.batch || oh >= params.out_height || ow >= params.out_width) {
        return;
    }

    var sum: f32 = 0.0;

    for (var ic: u32 = 0u; ic < params.in_channels; ic = ic + 1u) {
        for (var kh: u32 = 0u; kh < params.kernel_h; kh = kh + 1u) {
            let ih = i32(oh * params.stride_h + kh) - i32(params.pad_h);
            if (ih < 0 || ih >= i32(params.in_height)) {
                continue;
            }
            for (var kw: u32 = 0u; kw < params.kernel_w; kw = kw + 1u) {
                let iw = i32(ow * params.stride_w + kw) - i32(params.pad_w);
                if (iw < 0 || iw >= i32(params.in_width)) {
                    continue;
                }

                let in_idx = ((b * params.in_channels + ic) * params.in_height + u32(ih)) * params.in_width + u32(iw);
                let k_idx = ((oc * params.in_channels + ic) * params.kernel_h + kh) * params.kernel_w + kw;
                sum = sum + input[in_idx] * kernel[k_idx];
            }
        }
    }

    let out_idx = ((b * params.out_channels + oc) * params.out_height + oh) * params.out_width + ow;
    output[out_idx] = sum;
}
`

// filterActsShader convolves in the c01b layout. One invocation per output
// element; the batch index varies fastest so neighbouring invocations read
// neighbouring images.
// Input: [C, H, W, N]. Filters: [C, K, K, F]. Output: [F, H_out, W_out, N].
const filterActsShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read> filters: array<f32>;
@group(0) @binding(2) var<storage, read_write> output: array<f32>;

struct Params {
    channels: u32,
    height: u32,
    width: u32,
    batch: u32,
    size: u32,
    num_filters: u32,
    padding: u32,
    out_height: u32,
    out_width: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    let total = params.num_filters * params.out_height * params.out_width * params.batch;
    if (idx >= total) {
        return;
    }

    let n = idx % params.batch;
    var rem = idx / params.batch;
    let ox = rem % params.out_width;
    rem = rem / params.out_width;
    let oy = rem % params.out_height;
    let f = rem / params.out_height;

    var sum: f32 = 0.0;
    for (var c: u32 = 0u; c < params.channels; c = c + 1u) {
        for (var ky: u32 = 0u; ky < params.size; ky = ky + 1u) {
            let iy = i32(oy + ky) - i32(params.padding);
            if (iy < 0 || iy >= i32(params.height)) {
                continue;
            }
            for (var kx: u32 = 0u; kx < params.size; kx = kx + 1u) {
                let ix = i32(ox + kx) - i32(params.padding);
                if (ix < 0 || ix >= i32(params.width)) {
                    continue;
                }
                let w = filters[((c * params.size + ky) * params.size + kx) * params.num_filters + f];
                let v = input[((c * params.height + u32(iy)) * params.width + u32(ix)) * params.batch + n];
                sum = sum + w * v;
            }
        }
    }

    output[idx] = sum;
}
`

// maxPool2dShader performs 2D max pooling.
// Input shape: [batch, channels, height, width].
// Output shape: [batch, channels, out_height, out_width].
const maxPool2dShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> output: array<f32>;

struct Params {
    planes: u32,
    in_height: u32,
    in_width: u32,
    window_h: u32,
    window_w: u32,
    stride_h: u32,
    stride_w: u32,
    out_height: u32,
    out_width: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let p = global_id.z;
    let oh = global_id.y;
    let ow = global_id.x;

    if (p >= params.planes || oh >= params.out_height || ow >= params.out_width) {
        return;
    }

    var max_val: f32 = -3.402823e+38; // -FLT_MAX

    for (var kh: u32 = 0u; kh < params.window_h; kh = kh + 1u) {
        for (var kw: u32 = 0u; kw < params.window_w; kw = kw + 1u) {
            let ih = oh * params.stride_h + kh;
            let iw = ow * params.stride_w + kw;
            let in_idx = (p * params.in_height + ih) * params.in_width + iw;
            max_val = max(max_val, input[in_idx]);
        }
    }

    output[(p * params.out_height + oh) * params.out_width + ow] = max_val;
}
`
